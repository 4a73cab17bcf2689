// Command classify assigns taxonomy categories to a JSONL file of scraped
// products and writes the classified file back out. Run configuration lives
// in a YAML file; API keys come from the environment or a .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	classifier "github.com/FrenchMajesty/product-classifier"
	"github.com/FrenchMajesty/product-classifier/adapters"
	"github.com/FrenchMajesty/product-classifier/clients/onnx"
	"github.com/FrenchMajesty/product-classifier/clients/openai"
	"github.com/FrenchMajesty/product-classifier/clients/pinecone"
	"github.com/FrenchMajesty/product-classifier/clients/voyage"
	"github.com/FrenchMajesty/product-classifier/evaluate"
	"github.com/FrenchMajesty/product-classifier/export"
	"github.com/FrenchMajesty/product-classifier/index"
	"github.com/FrenchMajesty/product-classifier/internal/logging"
	"github.com/FrenchMajesty/product-classifier/taxonomy"
)

// flagOverrides are command-line overrides for the YAML run config, for
// one-off runs without editing the file.
type flagOverrides struct {
	input  string
	output string
	golden string
	rerank string // "", "on", "off"
}

func main() {
	configPath := flag.String("config", "classify.yaml", "path to run config")
	overrides := flagOverrides{}
	flag.StringVar(&overrides.input, "input", "", "override input JSONL path")
	flag.StringVar(&overrides.output, "output", "", "override output JSONL path")
	flag.StringVar(&overrides.golden, "evaluate", "", "override golden set CSV path")
	flag.StringVar(&overrides.rerank, "rerank", "", "override reranking: on or off")
	flag.Parse()

	// Missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	runID := strings.Split(uuid.NewString(), "-")[0]
	log := logging.Default().With("run_id", runID)

	if err := run(context.Background(), *configPath, overrides, log); err != nil {
		log.Error("run failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, overrides flagOverrides, log *logging.Logger) error {
	cfg, err := loadRunConfig(configPath)
	if err != nil {
		return err
	}
	if overrides.input != "" {
		cfg.InputPath = overrides.input
	}
	if overrides.output != "" {
		cfg.OutputPath = overrides.output
	}
	if overrides.golden != "" {
		cfg.GoldenPath = overrides.golden
	}
	switch overrides.rerank {
	case "":
	case "on":
		cfg.Rerank.Enabled = true
	case "off":
		cfg.Rerank.Enabled = false
	default:
		return fmt.Errorf("-rerank must be on or off, got %q", overrides.rerank)
	}
	if cfg.InputPath == "" || cfg.OutputPath == "" {
		return fmt.Errorf("input and output paths are required (config or flags)")
	}

	tree, err := taxonomy.LoadCSVFile(cfg.TaxonomyPath)
	if err != nil {
		return err
	}
	log.Info("taxonomy loaded", "nodes", tree.Len(), "leaves", len(tree.Leaves()))

	embedder, cleanup, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	defer cleanup()

	searcher, err := buildSearcher(ctx, cfg, tree, embedder, log)
	if err != nil {
		return err
	}

	var reranker classifier.Reranker
	if cfg.Rerank.Enabled {
		reranker, err = buildReranker(cfg.Rerank)
		if err != nil {
			return err
		}
	}

	engine, err := classifier.New(ctx, classifier.Config{
		Taxonomy:        tree,
		Embedding:       embedder,
		Reranker:        reranker,
		Searcher:        searcher,
		CacheDir:        cfg.CacheDir,
		ConfidenceFloor: cfg.ConfidenceFloor,
		TopK:            cfg.TopK,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	records, err := export.ReadJSONLFile(cfg.InputPath)
	if err != nil {
		return err
	}
	log.Info("classifying products", "count", len(records))

	var classified, nulled, failed int
	for i := range records {
		result, err := engine.Classify(ctx, &records[i].Product, cfg.Rerank.Enabled)
		if err != nil {
			// One bad product must not sink the run. It keeps its null
			// classification and the run moves on.
			failed++
			log.Warn("product failed", "product", records[i].Product.ProductName, "error", err.Error())
			continue
		}
		records[i].Apply(result)
		if result.TypeID != nil {
			classified++
		} else {
			nulled++
		}
	}

	if err := export.WriteJSONLFile(cfg.OutputPath, records); err != nil {
		return err
	}
	log.Info("run complete",
		"classified", classified,
		"below_floor", nulled,
		"failed", failed,
		"output", cfg.OutputPath,
	)

	if cfg.GoldenPath != "" {
		golden, err := evaluate.LoadGoldenCSVFile(cfg.GoldenPath)
		if err != nil {
			return err
		}
		report := evaluate.Evaluate(records, golden)
		fmt.Print(report.String())
	}
	return nil
}

func buildEmbedder(cfg embeddingConfig) (classifier.EmbeddingClient, func(), error) {
	switch cfg.Provider {
	case "voyage":
		key := os.Getenv("VOYAGE_API_KEY")
		if key == "" {
			return nil, nil, fmt.Errorf("VOYAGE_API_KEY is not set")
		}
		model := cfg.Model
		if model == "" {
			model = voyage.DefaultModel
		}
		return adapters.NewVoyageEmbeddingAdapter(voyage.NewClient(key, model)), func() {}, nil

	case "onnx":
		if cfg.ModelPath == "" || cfg.VocabPath == "" {
			return nil, nil, fmt.Errorf("onnx embedding needs model_path and vocab_path")
		}
		modelID := cfg.Model
		if modelID == "" {
			modelID = "onnx-local"
		}
		embedder, err := onnx.New(cfg.ModelPath, cfg.VocabPath, modelID)
		if err != nil {
			return nil, nil, err
		}
		return embedder, func() { embedder.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func buildReranker(cfg rerankConfig) (classifier.Reranker, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("rerank enabled but OPENAI_API_KEY is not set")
	}
	chat := openai.NewClient(key, os.Getenv("OPENAI_BASE_URL"))
	return adapters.NewLLMReranker(chat, cfg.Model), nil
}

// buildSearcher returns nil for the local backend, letting the engine build
// and cache its own in-process index.
func buildSearcher(ctx context.Context, cfg *runConfig, tree *taxonomy.Tree, embedder classifier.EmbeddingClient, log *logging.Logger) (classifier.VectorSearcher, error) {
	switch cfg.Search.Backend {
	case "local":
		return nil, nil

	case "sqlite":
		if cfg.Search.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite backend needs sqlite_path")
		}
		store, err := index.OpenSQLite(cfg.Search.SQLitePath)
		if err != nil {
			return nil, err
		}
		n, err := store.Len()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			log.Info("seeding sqlite index", "path", cfg.Search.SQLitePath)
			entries, err := embedLeaves(ctx, tree, embedder)
			if err != nil {
				return nil, err
			}
			if err := store.Replace(embedder.ModelID(), entries); err != nil {
				return nil, err
			}
		}
		return sqliteSearcher{store: store}, nil

	case "pinecone":
		if cfg.Search.PineconeHost == "" {
			return nil, fmt.Errorf("pinecone backend needs pinecone_host")
		}
		key := os.Getenv("PINECONE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("PINECONE_API_KEY is not set")
		}
		service, err := pinecone.NewService(key)
		if err != nil {
			return nil, err
		}
		namespace := cfg.Search.PineconeNamespace
		if namespace == "" {
			namespace = tree.Fingerprint(embedder.ModelID())[:16]
		}
		ops, err := service.ForIndex(cfg.Search.PineconeHost, namespace)
		if err != nil {
			return nil, err
		}
		return adapters.NewPineconeVectorAdapter(ops), nil

	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Search.Backend)
	}
}

// embedLeaves produces index entries for every leaf category, for seeding
// external search backends.
func embedLeaves(ctx context.Context, tree *taxonomy.Tree, embedder classifier.EmbeddingClient) ([]index.Entry, error) {
	leaves := tree.Leaves()
	labels := make([]string, len(leaves))
	for i, leaf := range leaves {
		path, err := tree.DisplayPath(leaf.ID)
		if err != nil {
			return nil, err
		}
		labels[i] = path
	}

	vectors, err := embedder.GenerateEmbeddings(ctx, labels)
	if err != nil {
		return nil, fmt.Errorf("embed category labels: %w", err)
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("got %d vectors for %d labels", len(vectors), len(labels))
	}

	entries := make([]index.Entry, len(leaves))
	for i, leaf := range leaves {
		entries[i] = index.Entry{NodeID: leaf.ID, Label: labels[i], Vector: vectors[i]}
	}
	return entries, nil
}

type sqliteSearcher struct {
	store *index.SQLiteStore
}

func (s sqliteSearcher) Search(_ context.Context, query []float32, k int) ([]index.Match, error) {
	return s.store.Search(query, k)
}
