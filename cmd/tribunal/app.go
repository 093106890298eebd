package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/tribunal/config"
	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/httpapi"
	"github.com/c360studio/tribunal/ingest"
	"github.com/c360studio/tribunal/llm"
	"github.com/c360studio/tribunal/orchestrator"
	"github.com/c360studio/tribunal/ranking"
	"github.com/c360studio/tribunal/review"
	"github.com/c360studio/tribunal/storage"
	"github.com/c360studio/tribunal/vectorstore"
)

// app wires the full service: config, stores, clients, and orchestrator.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	service  *orchestrator.Service
	ingester *ingest.Ingester
	nc       *nats.Conn
}

// newApp loads configuration and builds the service stack. Without a NATS
// URL everything runs on in-memory stores; reviews still work but nothing
// survives a restart.
func newApp(configPath, logLevel string) (*app, error) {
	logger := newLogger(logLevel)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err == nil {
			err = cfg.Validate()
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		ingester: ingest.NewIngester(30 * time.Second),
	}

	var store review.SessionStore
	var index vectorstore.Index

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(appName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		a.nc = nc

		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		kvStore, err := storage.NewSessionStore(ctx, js)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create session store: %w", err)
		}
		store = kvStore

		kvIndex, err := vectorstore.NewKVIndex(ctx, js)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create evidence index: %w", err)
		}
		index = kvIndex

		logger.Info("Using NATS-backed stores", "url", cfg.NATS.URL)
	} else {
		store = storage.NewMemorySessionStore()
		index = vectorstore.NewMemoryIndex()
		logger.Warn("No NATS URL configured, sessions will not survive restarts")
	}

	gen := llm.NewClient(llm.EndpointConfig{
		Provider: cfg.Model.Provider,
		URL:      cfg.Model.Endpoint,
		Model:    cfg.Model.Name,
	},
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
		llm.WithLogger(logger),
	)

	gov := governor.New(governor.Config{
		MaxAttempts:       cfg.Governor.MaxAttempts,
		BackoffBase:       cfg.Governor.BackoffBase,
		BackoffMultiplier: 2.0,
		MaxBackoff:        cfg.Governor.MaxBackoff,
		SessionWidth:      cfg.Governor.SessionWidth,
		EmbeddingWidth:    cfg.Governor.EmbeddingWidth,
	},
		governor.WithLogger(logger),
		governor.WithMetrics(governor.NewMetrics(a.registry)),
	)

	runnerOpts := []orchestrator.RunnerOption{
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(orchestrator.NewMetrics(a.registry)),
		orchestrator.WithHistoryN(cfg.Review.HistoryN),
	}
	if cfg.Embeddings.Endpoint != "" {
		embedder := llm.NewEmbeddingClient(cfg.Embeddings.Endpoint, cfg.Embeddings.Model,
			llm.WithEmbeddingLogger(logger))
		engine := ranking.NewEngine(index, ranking.WithLogger(logger))
		runnerOpts = append(runnerOpts, orchestrator.WithHistory(embedder, engine, index))
	} else {
		logger.Info("No embeddings endpoint configured, precedent retrieval disabled")
	}

	runner := orchestrator.NewRunner(store, gen, gov, runnerOpts...)
	a.service = orchestrator.NewService(store, runner, logger)

	return a, nil
}

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (a *app) Serve() error {
	mux := http.NewServeMux()
	httpapi.NewHandler(a.service, a.ingester, a.logger).RegisterHTTPHandlers("/reviews", mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Tribunal API listening", "addr", a.cfg.Server.Addr, "version", Version)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		a.logger.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// ReviewOnce runs a single synchronous review and prints the verdict as JSON.
func (a *app) ReviewOnce(ctx context.Context, file, url string, mode review.Mode, domain string) error {
	var document string
	var sources []review.Source
	switch {
	case url != "":
		doc, err := a.ingester.Ingest(ctx, url)
		if err != nil {
			return err
		}
		document = doc.Markdown
		sources = []review.Source{{Title: doc.Title, URL: doc.URL}}
		a.logger.Info("Ingested document", "url", url, "title", doc.Title)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		document = string(data)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		document = string(data)
	}

	session, err := a.service.Review(ctx, orchestrator.SubmitRequest{
		Document: document,
		Mode:     mode,
		Domain:   domain,
		Sources:  sources,
	})
	if err != nil {
		// Review returns a nil session when the submission itself is
		// rejected, before a session exists.
		if session == nil {
			return fmt.Errorf("review failed: %w", err)
		}
		return fmt.Errorf("review failed (session %s): %w", session.ID, err)
	}

	out, err := json.MarshalIndent(session.Verdict, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// Close releases external connections.
func (a *app) Close() {
	if a.nc != nil {
		a.nc.Close()
	}
}
