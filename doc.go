// Package mindgraph builds navigable knowledge graphs from free text.
//
// A language model proposes concepts and the relationships between them; the
// engine embeds the concepts, merges near duplicates, inserts the result into
// an in-memory graph store and links any disconnected components so the graph
// can be explored from a single node. Graphs can then be expanded, searched by
// similarity, clustered and reasoned over.
//
// # Basic Usage
//
// Build a client from configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := mindgraph.NewFromConfig(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// or wire the collaborators yourself:
//
//	llm, _ := nlp.NewOpenAIClient(apiKey, nlp.Config{Model: "gpt-4o-mini"})
//	emb := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{Model: "text-embedding-3-small"})
//	client, err := mindgraph.NewClient(nil, extraction.NewLLMExtractor(llm, logger), emb, &mindgraph.Config{
//		LanguageModels: mindgraph.LanguageModels{Explainer: llm},
//	}, logger)
//
// # Building Graphs
//
//	result, err := client.BuildGraphFromText(ctx, text, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.GraphID, result.Stats.NodeCount)
//
// Concepts and relationships extracted elsewhere can be passed to BuildGraph
// directly. Construction is all or nothing: readers see a graph only once it
// is complete.
//
// # Querying
//
//	sub, _ := client.ExpandNode(ctx, graphID, nodeID, 2)
//	similar, _ := client.FindSimilarNodes(ctx, graphID, nodeID, 5)
//	exp, _ := client.ExplainRelationship(ctx, graphID, a, b, nil)
//	answer, _ := client.AnswerQuestion(ctx, graphID, "How does X cause Y?", nil)
//
// # Persistence
//
// When a driver is configured every change is written through to it and
// graphs that were evicted or lost on restart are reloaded on first access.
package mindgraph
