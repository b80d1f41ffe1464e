package mindgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/server/dto"
	"github.com/soundprediction/mindgraph/pkg/types"
)

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Build a graph from a text file or a concepts file",
	Long: `Build a graph and print the build result.

A .json file is read as {"concepts": [...], "relationships": [...]}. Any other
file is treated as text and run through concept extraction first. Use "-" to
read text from standard input.

Graphs outlive the command only when a storage driver is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var (
	buildOutput        string
	buildInput         string
	buildMaxConcepts   int
	buildMinImportance float64
	buildMinStrength   float64
	buildRelationTypes []string
	buildTimeout       time.Duration
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "json", "Output format (json, yaml)")
	buildCmd.Flags().StringVar(&buildInput, "input", "auto", "Input kind (auto, text, concepts)")
	buildCmd.Flags().IntVar(&buildMaxConcepts, "max-concepts", 0, "Maximum concepts to extract (0 uses the configured value)")
	buildCmd.Flags().Float64Var(&buildMinImportance, "min-importance", 0, "Minimum concept importance (0 uses the configured value)")
	buildCmd.Flags().Float64Var(&buildMinStrength, "min-strength", 0, "Minimum relationship strength (0 uses the configured value)")
	buildCmd.Flags().StringSliceVar(&buildRelationTypes, "relation-types", nil, "Relationship types to extract")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 0, "Extraction timeout (0 uses the configured value)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	kind, err := inputKind(buildInput, args[0])
	if err != nil {
		return err
	}
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLogger := newLogger(cfg, os.Stderr)
	defer closeLogger()

	ctx := cmd.Context()
	client, err := mindgraph.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize MindGraph: %w", err)
	}
	defer client.Close()

	var result *types.BuildResult
	switch kind {
	case "concepts":
		var req dto.BuildGraphRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("failed to parse concepts file: %w", err)
		}
		if err := req.Validate(); err != nil {
			return err
		}
		result, err = client.BuildGraph(ctx, req.Concepts, req.Relationships)
	default:
		result, err = client.BuildGraphFromText(ctx, string(data), &mindgraph.BuildOptions{
			MaxConcepts:   buildMaxConcepts,
			MinImportance: buildMinImportance,
			MinStrength:   buildMinStrength,
			RelationTypes: buildRelationTypes,
			Timeout:       buildTimeout,
		})
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "none" {
		logger.Warn("no storage driver configured, the graph is discarded on exit", "graph_id", result.GraphID)
	}
	return writeOutput(cmd.OutOrStdout(), buildOutput, result)
}

func inputKind(flag, path string) (string, error) {
	switch flag {
	case "text", "concepts":
		return flag, nil
	case "auto", "":
		if strings.EqualFold(filepath.Ext(path), ".json") {
			return "concepts", nil
		}
		return "text", nil
	}
	return "", fmt.Errorf("unknown input kind %q", flag)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
