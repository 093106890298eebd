package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/llm"
	"github.com/c360studio/tribunal/orchestrator"
	"github.com/c360studio/tribunal/review"
	"github.com/c360studio/tribunal/storage"
)

const verdictResponse = `{
	"decision": "Kill",
	"confidence": 0.9,
	"reasoning": "no willingness to pay anywhere in the record",
	"scorecard": {"overall_score": 20, "market_score": 30, "customer_score": 10, "feasibility_score": 50, "differentiation_score": 15},
	"investor_readiness": {"score": 5, "verdict": "NotReady", "reasons": ["no traction"]}
}`

// judgeGen answers clarify then verdict, enough for short-mode sessions.
type judgeGen struct {
	calls int
}

func (g *judgeGen) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	g.calls++
	if g.calls == 1 {
		return &llm.Response{Content: `{"core_claim": "x", "review_focus": [], "ambiguities": []}`}, nil
	}
	return &llm.Response{Content: verdictResponse}, nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *storage.MemorySessionStore) {
	t.Helper()
	store := storage.NewMemorySessionStore()
	runner := orchestrator.NewRunner(store, &judgeGen{}, governor.New(governor.DefaultConfig()))
	service := orchestrator.NewService(store, runner, nil)

	mux := http.NewServeMux()
	NewHandler(service, nil, nil).RegisterHTTPHandlers("/reviews", mux)
	return mux, store
}

func TestSubmitReview(t *testing.T) {
	mux, _ := newTestMux(t)

	t.Run("accepts inline document", func(t *testing.T) {
		body := `{"document": "we sell widgets", "mode": "short"}`
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp SubmitReviewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if resp.SessionID == "" {
			t.Error("expected a session id")
		}
		if resp.Status != string(review.StatusPending) {
			t.Errorf("expected pending, got %q", resp.Status)
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects document and url together", func(t *testing.T) {
		body := `{"document": "x", "url": "https://example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		body := `{"document": "x", "mode": "verbose"}`
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects url without ingester", func(t *testing.T) {
		body := `{"url": "https://example.com/pitch"}`
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGetSession(t *testing.T) {
	mux, store := newTestMux(t)

	t.Run("unknown id is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reviews/nope", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns stored session with rendered transcript", func(t *testing.T) {
		session := review.NewSession("doc", review.ModeShort)
		session.AppendEvent("orchestrator", 1, review.EventPhaseStart, map[string]any{"phase": "clarify"})
		if err := store.Put(context.Background(), session); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/reviews/"+session.ID, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var got SessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if got.ID != session.ID {
			t.Errorf("wrong session returned: %q", got.ID)
		}
		if !strings.Contains(got.TranscriptText, "phase 1 orchestrator phase_start") {
			t.Errorf("transcript rendering missing or wrong: %q", got.TranscriptText)
		}
	})
}

func TestGetVerdict(t *testing.T) {
	mux, store := newTestMux(t)

	t.Run("pending session is 409", func(t *testing.T) {
		session := review.NewSession("doc", review.ModeShort)
		if err := store.Put(context.Background(), session); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/reviews/"+session.ID+"/verdict", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("completed session returns verdict", func(t *testing.T) {
		// Submit and poll until the background run completes.
		body := `{"document": "we sell widgets", "mode": "short"}`
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("submit failed: %d", rec.Code)
		}
		var submitted SubmitReviewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
			t.Fatalf("bad body: %v", err)
		}

		deadline := time.Now().Add(5 * time.Second)
		for {
			req := httptest.NewRequest(http.MethodGet, "/reviews/"+submitted.SessionID+"/verdict", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code == http.StatusOK {
				var v review.Verdict
				if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
					t.Fatalf("bad verdict body: %v", err)
				}
				if v.Decision != review.DecisionKill {
					t.Errorf("expected Kill, got %q", v.Decision)
				}
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("session never completed, last status %d: %s", rec.Code, rec.Body.String())
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}
