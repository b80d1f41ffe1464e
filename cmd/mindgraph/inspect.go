package mindgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/mindgraph"
)

var graphsCmd = &cobra.Command{
	Use:   "graphs",
	Short: "Inspect stored graphs",
}

var graphsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored graphs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *mindgraph.Client) error {
			graphs, err := client.ListGraphs(cmd.Context())
			if err != nil {
				return err
			}
			if inspectOutput != "table" {
				return writeOutput(cmd.OutOrStdout(), inspectOutput, graphs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNODES\tEDGES\tVERSION\tUPDATED")
			for _, g := range graphs {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", g.ID, g.NodeCount, g.EdgeCount, g.Version, g.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		})
	},
}

var graphsShowCmd = &cobra.Command{
	Use:   "show <graph-id>",
	Short: "Print a graph with its nodes and edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *mindgraph.Client) error {
			g, err := client.GetGraph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputOrJSON(inspectOutput), g)
		})
	},
}

var graphsClustersCmd = &cobra.Command{
	Use:   "clusters <graph-id>",
	Short: "Print the cluster assignment of a graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *mindgraph.Client) error {
			c, err := client.ClusterGraph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputOrJSON(inspectOutput), c)
		})
	},
}

var graphsDeleteCmd = &cobra.Command{
	Use:   "delete <graph-id>",
	Short: "Delete a graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *mindgraph.Client) error {
			if err := client.DeleteGraph(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

var inspectOutput string

func init() {
	rootCmd.AddCommand(graphsCmd)
	graphsCmd.AddCommand(graphsListCmd, graphsShowCmd, graphsClustersCmd, graphsDeleteCmd)

	graphsCmd.PersistentFlags().StringVarP(&inspectOutput, "output", "o", "table", "Output format (table, json, yaml)")
}

// withClient runs fn against a client built from the loaded configuration.
func withClient(cmd *cobra.Command, fn func(*mindgraph.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLogger := newLogger(cfg, os.Stderr)
	defer closeLogger()

	client, err := mindgraph.NewFromConfig(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize MindGraph: %w", err)
	}
	defer client.Close()
	return fn(client)
}

func outputOrJSON(format string) string {
	if format == "table" {
		return "json"
	}
	return format
}

// writeOutput renders v as indented JSON or as YAML with the JSON field names.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}
