package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contextforge/contextforge/internal/config"
	"github.com/contextforge/contextforge/internal/core/ports"
	"github.com/contextforge/contextforge/internal/core/usecase"
	"github.com/contextforge/contextforge/internal/infrastructure/chunking"
	"github.com/contextforge/contextforge/internal/infrastructure/extractor"
	"github.com/contextforge/contextforge/internal/infrastructure/extractor/pdfdoc"
	"github.com/contextforge/contextforge/internal/infrastructure/extractor/plaintext"
	"github.com/contextforge/contextforge/internal/infrastructure/extractor/spreadsheet"
	"github.com/contextforge/contextforge/internal/infrastructure/extractor/webpage"
	"github.com/contextforge/contextforge/internal/infrastructure/llm/ollama"
	"github.com/contextforge/contextforge/internal/infrastructure/queue/nats"
	"github.com/contextforge/contextforge/internal/infrastructure/repository/postgres"
	"github.com/contextforge/contextforge/internal/infrastructure/resilience"
	"github.com/contextforge/contextforge/internal/infrastructure/storage/localfs"
	"github.com/contextforge/contextforge/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue   ports.MessageQueue
	Docs    ports.DocumentRepository
	History ports.HistoryWriter
	Storage ports.ObjectStorage
	Assets  *localfs.SignedURLResolver

	AskUC     ports.QuestionAnswerer
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunks := postgres.NewChunkRepository(db)
	users := postgres.NewUserRepository(db)
	history := postgres.NewHistoryRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	// Without a secret no signed URLs are issued and image rows are returned
	// without links.
	var assetResolver *localfs.SignedURLResolver
	if cfg.AssetURLSecret != "" {
		assetResolver, err = localfs.NewSignedURLResolver(
			cfg.PublicBaseURL,
			cfg.AssetURLSecret,
			time.Duration(cfg.AssetURLTTLSecs)*time.Second,
		)
		if err != nil {
			return nil, fmt.Errorf("init asset url resolver: %w", err)
		}
	}

	queueResilience := resilience.DefaultConfig()
	queueResilience.Logger = logger
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Logger:             logger,
		ResilienceExecutor: resilience.NewExecutor(queueResilience),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantTextCollection, cfg.QdrantImageCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewRouter(
		pdfdoc.NewExtractor(storage),
		spreadsheet.NewExtractor(storage),
		webpage.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)

	planner := usecase.NewPlanner(generator, cfg.PlannerLLMEnabled, cfg.MaxQueryVariants, logger)
	semantic := usecase.NewEmbeddingRetriever(embedder, vectors, cfg.RetrievalTopK, cfg.MaxCandidates, logger)
	lexical := usecase.NewLexicalRetriever(chunks, cfg.RetrievalTopK, cfg.MaxCandidates)
	gaps := usecase.NewGapDetector(generator, cfg.PlannerLLMEnabled, cfg.RetrievalTopK, cfg.MaxQueryVariants, logger)
	expander := usecase.NewContextExpander(chunks, cfg.ExpansionDocs, cfg.ExpansionCharBudget)

	var assets ports.AssetURLResolver
	if assetResolver != nil {
		assets = assetResolver
	}

	askUC := usecase.NewAskUseCase(
		planner,
		semantic,
		lexical,
		gaps,
		expander,
		generator,
		users,
		history,
		assets,
		usecase.AskLimits{
			TopK:              cfg.RetrievalTopK,
			RoundBudget:       cfg.RoundBudget,
			MaxQueryVariants:  cfg.MaxQueryVariants,
			SecondPassEnabled: cfg.SecondPassEnabled,
			ExpansionEnabled:  cfg.ExpansionEnabled,
			AnswerMaxTokens:   cfg.AnswerMaxTokens,
		},
		logger,
	)
	ingestUC := usecase.NewIngestDocumentUseCase(docs, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(docs, extract, chunker, chunks, embedder, vectors)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Queue:   queue,
		Docs:    docs,
		History: history,
		Storage: storage,
		Assets:  assetResolver,

		AskUC:     askUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
