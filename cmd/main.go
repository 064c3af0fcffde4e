package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/chunker"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/db"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/doctext"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/embedding"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/helper"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/index"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/llmservice"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/rag"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	initOnly := flag.Bool("init", false, "Initialize the database schema and exit")
	filePath := flag.String("file", "", "Path to the document file to ingest")
	query := flag.String("query", "", "Question to be answered")
	topK := flag.Int("k", 5, "Number of chunks to retrieve")
	docID := flag.Int64("doc", 0, "Document id to scope the question to (0 = all documents)")
	list := flag.Bool("list", false, "List ingested documents")
	deleteID := flag.Int64("delete", 0, "Document id to delete")
	dumpID := flag.Int64("dump", 0, "Document id whose stored file to write out")
	outDir := flag.String("out", "./downloads", "Folder the -dump flag writes into")
	rebuild := flag.Bool("rebuild", false, "Rebuild the vector index")
	dryRun := flag.Bool("dry-run", false, "Chunk the file and print the result without saving")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	if runID, err := helper.GenerateUUID(); err == nil {
		log.Logger = log.Logger.With().Str("run_id", runID).Logger()
	}

	ctx := context.Background()

	switch {
	case *initOnly:
		initSchema(ctx, cfg)
	case *list:
		listDocuments(ctx, cfg)
	case *deleteID != 0:
		deleteDocument(ctx, cfg, *deleteID)
	case *dumpID != 0:
		dumpDocument(ctx, cfg, *dumpID, *outDir)
	case *rebuild:
		rebuildIndex(ctx, cfg)
	case *filePath != "":
		ingestFile(ctx, cfg, *filePath, *dryRun)
	case *query != "":
		askQuestion(ctx, cfg, *query, *topK, *docID)
	default:
		log.Fatal().Msg("Please provide a document file using the -file flag or a question using the -query flag")
	}
}

// buildService wires the pipeline the way the config asks for and makes
// sure the schema exists. Embedder and llm client both initialize
// lazily, so commands that never embed or generate stay cheap.
func buildService(ctx context.Context, cfg *config.Config) (*rag.Service, *db.Store, *bun.DB) {
	bunDB, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	store := db.NewStore(bunDB, cfg)
	if err := store.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	idx, err := buildIndex(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector index")
	}

	embedder := embedding.NewProvider(cfg.Embedding)
	generator := llmservice.NewClient(cfg.LLM)

	svc, err := rag.New(store, idx, embedder, generator, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating rag service")
	}
	return svc, store, bunDB
}

func buildIndex(cfg *config.Config, store *db.Store) (index.Index, error) {
	switch cfg.Index.Backend {
	case "chromem":
		if !cfg.Index.InMemory {
			if err := helper.CreateFolder(cfg.Index.Path); err != nil {
				return nil, err
			}
		}
		return index.NewChromem(cfg.Index, cfg.Embedding.Dimension)
	case "pgvector":
		return index.NewPGVector(store), nil
	default:
		return index.NewIVF(cfg.Index, cfg.Embedding.Dimension), nil
	}
}

// the ivf index lives in process memory and is hydrated from the store
// on startup; the other backends hold their own state
func warmIndex(ctx context.Context, cfg *config.Config, svc *rag.Service) {
	if cfg.Index.Backend != "ivf" {
		return
	}
	if err := svc.LoadIndex(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error loading vector index")
	}
}

func initSchema(ctx context.Context, cfg *config.Config) {
	_, store, bunDB := buildService(ctx, cfg)
	defer bunDB.Close()
	if err := store.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error reaching database")
	}
	log.Info().Msg("Database schema ready")
}

func ingestFile(ctx context.Context, cfg *config.Config, filePath string, dryRun bool) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document file")
	}
	filename := filepath.Base(filePath)
	text, err := doctext.NewPlain().Extract(filename, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Error extracting text")
	}

	if dryRun {
		splitter, err := chunker.New(chunker.Config{
			TargetSize: cfg.RAG.ChunkSize,
			Overlap:    cfg.RAG.ChunkOverlap,
			Separators: cfg.RAG.Separators,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating splitter")
		}
		pieces, err := splitter.Split(text)
		if err != nil {
			log.Fatal().Err(err).Msg("Error chunking document")
		}
		log.Info().Msgf("Chunked %s into %d pieces", filename, len(pieces))
		helper.PrettyPrint(pieces)
		return
	}

	svc, _, bunDB := buildService(ctx, cfg)
	defer bunDB.Close()

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	res, err := svc.IngestDocument(ctx, filename, fileType, data, text)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	helper.PrettyPrint(res)
}

func askQuestion(ctx context.Context, cfg *config.Config, query string, k int, docID int64) {
	svc, _, bunDB := buildService(ctx, cfg)
	defer bunDB.Close()
	warmIndex(ctx, cfg, svc)

	ans, err := svc.Answer(ctx, query, k, docID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering question")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(ans.Sources)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", ans.Answer)
}

func listDocuments(ctx context.Context, cfg *config.Config) {
	_, store, bunDB := buildService(ctx, cfg)
	defer bunDB.Close()

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing documents")
	}
	if len(docs) == 0 {
		log.Info().Msg("No documents ingested yet")
		return
	}
	helper.PrettyPrint(docs)
}

func deleteDocument(ctx context.Context, cfg *config.Config, id int64) {
	svc, store, bunDB := buildService(ctx, cfg)
	defer bunDB.Close()

	doc, err := store.GetDocument(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Msg("Error fetching document")
	}
	if err := svc.DeleteDocument(ctx, id); err != nil {
		log.Fatal().Err(err).Msg("Error deleting document")
	}
	log.Info().Msgf("Deleted document %d (%s)", id, doc.Filename)
}

func dumpDocument(ctx context.Context, cfg *config.Config, id int64, outDir string) {
	_, store, bunDB := buildService(ctx, cfg)
	defer bunDB.Close()

	doc, err := store.GetDocumentFile(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Msg("Error fetching document file")
	}
	if err := helper.CreateFolder(outDir); err != nil {
		log.Fatal().Err(err).Msg("Error creating output folder")
	}
	outPath := filepath.Join(outDir, doc.Filename)
	if err := os.WriteFile(outPath, doc.FileData, 0o644); err != nil {
		log.Fatal().Err(err).Msg("Error writing document file")
	}
	log.Info().Msgf("Wrote %s (%d bytes)", outPath, len(doc.FileData))
}

func rebuildIndex(ctx context.Context, cfg *config.Config) {
	svc, _, bunDB := buildService(ctx, cfg)
	defer bunDB.Close()

	if cfg.Index.Backend == "ivf" {
		// hydrating from the store already ends with a build
		warmIndex(ctx, cfg, svc)
	} else if err := svc.Rebuild(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error rebuilding index")
	}
	log.Info().Msg("Index rebuilt")
}
