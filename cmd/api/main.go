package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kbase/internal/blob"
	"kbase/internal/config"
	"kbase/internal/handlers"
	"kbase/internal/http"
	"kbase/internal/indexer"
	"kbase/internal/llm"
	"kbase/internal/rag"
	"kbase/internal/service"
	"kbase/internal/storage"
	"kbase/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	assistantRepo := storage.NewAssistantRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	messageRepo := storage.NewMessageRepo(db)

	blobStore, err := blob.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Qdrant vector index
	index, err := vectorstore.NewQdrantIndex(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := index.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbedDimension); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbedDimension)

	// Gemini client serves embeddings and generation
	gemini, err := llm.NewClient(ctx, llm.Config{
		APIKey:          cfg.GoogleAPIKey,
		EmbedModel:      cfg.EmbedModelName,
		ChatModel:       cfg.ChatModelName,
		Dimension:       cfg.EmbedDimension,
		Temperature:     cfg.Temperature,
		EmbedTimeout:    cfg.EmbedTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}

	// Ingestion pipeline with background workers and stuck-document reaper
	pipeline := indexer.NewPipeline(documentRepo, assistantRepo, blobStore, gemini, index, indexer.Options{
		Collection:      cfg.QdrantCollection,
		ChunkWindow:     cfg.ChunkWindow,
		ChunkOverlap:    cfg.ChunkOverlap,
		MaxChunksPerDoc: cfg.MaxChunksPerDoc,
	})
	dispatcher := indexer.NewDispatcher(pipeline, cfg.IngestWorkers, 64, slog.Default())
	dispatcher.Start(ctx)

	reaper := indexer.NewReaper(documentRepo, cfg.ProcessingDeadline, slog.Default())
	if err := reaper.Start(); err != nil {
		log.Fatalf("Failed to start ingestion reaper: %v", err)
	}

	// Retrieval and answering
	engine := rag.NewEngine(gemini, index, documentRepo, cfg.QdrantCollection)
	assembler := rag.NewAssembler(cfg.ContextDocBudget)

	askService := service.NewAskService(assistantRepo, documentRepo, messageRepo, blobStore,
		engine, assembler, gemini, cfg.TopK, cfg.ScoreThreshold)
	documentService := service.NewDocumentService(assistantRepo, documentRepo, blobStore,
		index, dispatcher, cfg.QdrantCollection, cfg.MaxUploadBytes)
	assistantService := service.NewAssistantService(assistantRepo, documentRepo, messageRepo,
		blobStore, index, cfg.QdrantCollection)

	router := http.NewRouter(&http.Deps{
		Assistants:     assistantService,
		Documents:      documentService,
		Ask:            askService,
		Health:         handlers.NewHealthHandler(index, db, cfg.QdrantCollection),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting API server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	reaper.Stop()
	dispatcher.Stop()
}
