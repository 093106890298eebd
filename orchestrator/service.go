package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/tribunal/review"
)

// ErrNoVerdict is returned when a verdict is requested before the session
// has completed.
var ErrNoVerdict = fmt.Errorf("session has no verdict yet")

// Service is the submission-facing API over the runner: it creates sessions,
// runs them in the background, and serves reads from the store.
type Service struct {
	store  review.SessionStore
	runner *Runner
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(store review.SessionStore, runner *Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, runner: runner, logger: logger}
}

// SubmitRequest describes a new review submission.
type SubmitRequest struct {
	Document string
	Mode     review.Mode
	// Domain optionally overrides automatic domain detection.
	Domain string
	// Sources are grounded references (e.g. the ingested origin page) that
	// agent claims may cite by index.
	Sources []review.Source
}

// Submit creates and persists a pending session, then runs it in the
// background. The initial persist is the one write that must succeed: a
// session that cannot be stored is rejected rather than run invisibly.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*review.Session, error) {
	if req.Document == "" {
		return nil, fmt.Errorf("document is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = review.ModeFull
	}

	session := review.NewSession(req.Document, mode)
	session.Domain = req.Domain
	session.Sources = req.Sources
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.logger.Info("Review session submitted",
		"session_id", session.ID,
		"mode", mode)

	// The run outlives the submission request. The caller gets a detached
	// snapshot taken before the run starts: the runner is the only writer of
	// the live session, and transcript entries are never edited in place.
	snapshot := *session
	go func() {
		if err := s.runner.Run(context.Background(), session); err != nil {
			s.logger.Error("Background session run failed",
				"session_id", session.ID,
				"error", err)
		}
	}()

	return &snapshot, nil
}

// Review runs a session synchronously and returns its terminal state. Used
// by the CLI, where the caller waits for the verdict.
func (s *Service) Review(ctx context.Context, req SubmitRequest) (*review.Session, error) {
	if req.Document == "" {
		return nil, fmt.Errorf("document is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = review.ModeFull
	}

	session := review.NewSession(req.Document, mode)
	session.Domain = req.Domain
	session.Sources = req.Sources
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if err := s.runner.Run(ctx, session); err != nil {
		return session, err
	}
	return session, nil
}

// GetSession retrieves a session snapshot by id.
func (s *Service) GetSession(ctx context.Context, id string) (*review.Session, error) {
	return s.store.Get(ctx, id)
}

// GetVerdict retrieves the verdict of a completed session. Returns
// ErrNoVerdict while the session is still running and the session's recorded
// error when it failed.
func (s *Service) GetVerdict(ctx context.Context, id string) (*review.Verdict, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case review.StatusCompleted:
		return session.Verdict, nil
	case review.StatusFailed:
		return nil, fmt.Errorf("session failed: %s", session.Error)
	default:
		return nil, ErrNoVerdict
	}
}
