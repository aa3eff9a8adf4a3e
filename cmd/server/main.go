package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"medintake/internal/config"
	"medintake/internal/core"
	httpserver "medintake/internal/http"
	"medintake/internal/llm"
	"medintake/internal/logger"
	"medintake/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet at this point.
		panic(err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogJSON)

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory store; user state is bound to the process lifetime")
	}

	oracle := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OracleModel)
	flow := core.NewFlow(st, oracle, log)
	summarizer := core.NewSummarizer(st, oracle, log)

	srv := httpserver.NewServer(flow, summarizer, st, log, cfg.DebugEndpoints)
	server := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: srv.Router(),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	go func() {
		log.WithField("addr", cfg.BindAddr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-stop
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}
