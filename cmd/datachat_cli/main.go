package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"datachat/agent"
	"datachat/config"
	"datachat/dataset"
	"datachat/logger"
)

func main() {
	csvPath := flag.String("csv", "", "dataset file to load (.csv, .xlsx or .xls)")
	ask := flag.String("ask", "", "question to run against the dataset")
	configPath := flag.String("config", "", "path to a JSON config file")
	verbose := flag.Bool("v", false, "print planner progress")
	flag.Parse()

	if *csvPath == "" || *ask == "" {
		fmt.Println("Usage: datachat_cli -csv file.csv -ask \"question\" [-config path] [-v]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	var sink func(string)
	if *verbose {
		sink = logger.NewLogger().Sink()
	}

	ctx := context.Background()
	chatModel, err := agent.BuildChatModel(ctx, cfg, sink)
	if err != nil {
		fmt.Printf("Error building chat model: %v\n", err)
		os.Exit(1)
	}
	catalog, err := agent.NewAnalysisCatalog(cfg.ArtifactDir, sink)
	if err != nil {
		fmt.Printf("Error building catalog: %v\n", err)
		os.Exit(1)
	}
	analyst, err := agent.NewAnalyst(chatModel, catalog, agent.NewArtifactExtractor(cfg.ArtifactDir), cfg.MaxIterations, sink)
	if err != nil {
		fmt.Printf("Error building analyst: %v\n", err)
		os.Exit(1)
	}

	ds, err := dataset.Load(*csvPath)
	if err != nil {
		fmt.Printf("Error loading dataset: %v\n", err)
		os.Exit(1)
	}
	store := dataset.NewStore()
	store.Replace(ds)
	fmt.Printf("Loaded dataset '%s' with %d rows and %d columns.\n\n", ds.Name, ds.Rows(), len(ds.Columns))

	result, err := analyst.Run(ctx, store, nil, *ask)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Text)
	if len(result.Artifacts) > 0 {
		fmt.Println()
		for _, path := range result.Artifacts {
			fmt.Printf("Chart: %s\n", path)
		}
	}
}
