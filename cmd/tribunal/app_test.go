package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/llm"
	"github.com/c360studio/tribunal/orchestrator"
	"github.com/c360studio/tribunal/review"
	"github.com/c360studio/tribunal/storage"
)

type staticGen struct{}

func (staticGen) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: "{}"}, nil
}

func newTestApp() *app {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := storage.NewMemorySessionStore()
	gov := governor.New(governor.DefaultConfig())
	runner := orchestrator.NewRunner(store, staticGen{}, gov, orchestrator.WithLogger(logger))
	return &app{
		logger:  logger,
		service: orchestrator.NewService(store, runner, logger),
	}
}

func TestReviewOnceEmptyDocument(t *testing.T) {
	a := newTestApp()

	path := filepath.Join(t.TempDir(), "empty.md")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	err := a.ReviewOnce(context.Background(), path, "", review.ModeShort, "")
	if err == nil {
		t.Fatal("empty document should be rejected")
	}
	if !strings.Contains(err.Error(), "review failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReviewOnceMissingFile(t *testing.T) {
	a := newTestApp()

	err := a.ReviewOnce(context.Background(), filepath.Join(t.TempDir(), "absent.md"), "", review.ModeShort, "")
	if err == nil {
		t.Fatal("missing file should error")
	}
	if !strings.Contains(err.Error(), "read document") {
		t.Errorf("unexpected error: %v", err)
	}
}
