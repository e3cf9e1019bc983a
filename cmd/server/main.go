package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anamitradey/OCP-RAG/internal/api"
	"github.com/anamitradey/OCP-RAG/internal/chunker"
	"github.com/anamitradey/OCP-RAG/internal/config"
	"github.com/anamitradey/OCP-RAG/internal/embedding"
	"github.com/anamitradey/OCP-RAG/internal/ingest"
	"github.com/anamitradey/OCP-RAG/internal/rag"
	"github.com/anamitradey/OCP-RAG/internal/retrieval"
	"github.com/anamitradey/OCP-RAG/internal/store"
	"github.com/anamitradey/OCP-RAG/internal/store/chromem"
	"github.com/anamitradey/OCP-RAG/internal/store/pg"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.Chunking.Window > cfg.Embedding.MaxInputChars {
		log.Warn().
			Int("window", cfg.Chunking.Window).
			Int("max_input_chars", cfg.Embedding.MaxInputChars).
			Msg("Chunk window exceeds the embedding model's input capability")
	}

	embedder, err := embedding.FromConfig(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating embedder")
	}

	ctx := context.Background()
	st, err := newStore(ctx, cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer st.Close()
	log.Info().Str("backend", cfg.Store.Backend).Str("collection", st.Collection()).Msg("Vector store ready")

	splitter, err := chunker.FromConfig(cfg.Chunking)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating chunker")
	}

	composer, err := rag.NewComposer(&cfg.RAG, cfg.RequestTimeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating answer composer")
	}

	handler := api.NewHandler(
		ingest.NewService(st, splitter),
		retrieval.NewAssembler(st),
		composer,
		st,
		cfg.RAG.SearchTopK,
		cfg.RAG.ChatTopK,
		cfg.RequestTimeout(),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

func newStore(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (store.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return pg.New(ctx, &cfg.Store.Postgres, cfg.Store.Collection, embedder)
	default:
		return chromem.New(cfg.Store.Path, cfg.Store.Collection, cfg.Store.Path == ":memory:", cfg.Store.Compress, embedder)
	}
}
