package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/tribunal/review"
)

// connectJetStream returns a JetStream handle against a local NATS server,
// skipping the test when none is reachable.
func connectJetStream(t *testing.T) (jetstream.JetStream, func()) {
	t.Helper()

	nc, err := nats.Connect(nats.DefaultURL, nats.Timeout(2*time.Second))
	if err != nil {
		t.Skipf("NATS server not available: %v", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		t.Fatalf("jetstream context: %v", err)
	}

	return js, nc.Close
}

func TestSessionStoreJetStream(t *testing.T) {
	js, cleanup := connectJetStream(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewSessionStore(ctx, js)
	if err != nil {
		t.Fatalf("NewSessionStore failed: %v", err)
	}

	session := review.NewSession("integration pitch", review.ModeShort)
	session.AppendEvent("judge", 1, review.EventPhaseStart, map[string]any{"phase": "clarify"})

	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Document != "integration pitch" {
		t.Errorf("document not preserved: %q", got.Document)
	}
	if len(got.Transcript) != 1 {
		t.Errorf("expected 1 transcript event, got %d", len(got.Transcript))
	}

	// Terminal snapshot overwrites the pending one.
	session.Status = review.StatusCompleted
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	got, err = store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if got.Status != review.StatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}

	if _, err := store.Get(ctx, "no-such-session"); !errors.Is(err, review.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing key, got %v", err)
	}
}
