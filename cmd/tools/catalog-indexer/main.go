// cmd/tools/catalog-indexer/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"support-agent/internal/catalog"
	"support-agent/internal/common/config"
	"support-agent/internal/common/database"
	"support-agent/internal/common/logger"
	"support-agent/internal/index"
	"support-agent/internal/providers/embedding"
)

func main() {
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	syncConfig := syncCmd.String("config", "", "Path to config file (defaults to configs/config.yaml lookup)")
	syncPath := syncCmd.String("catalog", "", "Override catalog JSON file")

	queryCmd := flag.NewFlagSet("query", flag.ExitOnError)
	queryConfig := queryCmd.String("config", "", "Path to config file")
	queryText := queryCmd.String("text", "", "Query text")
	queryK := queryCmd.Int("k", 3, "Number of results")

	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)
	statsConfig := statsCmd.String("config", "", "Path to config file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "sync":
		syncCmd.Parse(os.Args[2:])
		cfg := mustLoad(*syncConfig)
		if *syncPath != "" {
			cfg.Catalog.Source = "file"
			cfg.Catalog.Path = *syncPath
		}
		idx := mustOpenIndex(ctx, cfg)

		var es *elasticsearch.Client
		if cfg.Catalog.Source == "elasticsearch" {
			client, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			exitOn(err, "elasticsearch init")
			es = client.Client
		}
		src, err := catalog.NewSource(cfg.Catalog, es)
		exitOn(err, "catalog source")

		added, err := catalog.Sync(ctx, src, idx, logger.NewStructured("warn", "console"))
		exitOn(err, "sync")
		fmt.Printf("Added %d products from %s (index now holds %d, dimension %d)\n", added, src.Name(), idx.Len(), idx.Dimension())

	case "query":
		queryCmd.Parse(os.Args[2:])
		if *queryText == "" {
			fmt.Println("Error: -text is required for query.")
			queryCmd.Usage()
			os.Exit(1)
		}
		cfg := mustLoad(*queryConfig)
		idx := mustOpenIndex(ctx, cfg)

		hits, err := idx.Query(ctx, *queryText, *queryK)
		exitOn(err, "query")
		if len(hits) == 0 {
			fmt.Println("No products found.")
			return
		}
		for i, h := range hits {
			fmt.Printf("%d. %s  %s  (distance %.4f)\n", i+1, h.Product.ProductID, h.Product.Name, h.Distance)
		}

	case "stats":
		statsCmd.Parse(os.Args[2:])
		cfg := mustLoad(*statsConfig)
		idx := mustOpenIndex(ctx, cfg)
		fmt.Printf("Backend:   %s\n", cfg.Index.Backend)
		fmt.Printf("Documents: %d\n", idx.Len())
		fmt.Printf("Dimension: %d\n", idx.Dimension())

	case "help", "-h", "--help":
		help()

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		help()
		os.Exit(1)
	}
}

func mustLoad(path string) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	exitOn(err, "load config")
	return cfg
}

func mustOpenIndex(ctx context.Context, cfg *config.Config) *index.Index {
	log := logger.NewStructured("warn", "console")

	var rdb redis.Cmdable
	if cfg.Embedding.Cache.Enabled {
		rc := database.NewRedis(cfg.Database.Redis)
		if err := rc.Ping(ctx); err == nil {
			rdb = rc.Client
		}
	}

	embedder, err := embedding.New(cfg.Embedding, rdb, log)
	exitOn(err, "embedding provider")

	artifacts, err := index.ArtifactsFromConfig(ctx, cfg.Index)
	exitOn(err, "artifact store")

	idx := index.New(embedder, artifacts, log)
	if err := idx.Load(ctx); err != nil {
		if !errors.Is(err, index.ErrIndexCorrupted) {
			exitOn(err, "load index")
		}
		fmt.Fprintf(os.Stderr, "Warning: %v; starting from an empty index\n", err)
	}
	return idx
}

func exitOn(err error, what string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", what, err)
		os.Exit(1)
	}
}

func help() {
	fmt.Println("Usage: catalog-indexer <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  sync   Embed and index catalog products missing from the index")
	fmt.Println("  query  Run a nearest-neighbor query against the index")
	fmt.Println("  stats  Show index size and dimension")
}
