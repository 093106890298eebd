package agents

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/llm"
	"github.com/c360studio/tribunal/review"
)

// fakeGen returns canned responses in order, recording requests.
type fakeGen struct {
	responses []string
	err       error
	requests  []llm.Request
}

func (f *fakeGen) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llm.Response{Content: f.responses[i]}, nil
}

func testDeps(gen Generator) Deps {
	return Deps{
		Gen:    gen,
		Gov:    governor.New(governor.DefaultConfig()),
		Logger: slog.Default(),
	}
}

func TestWorkerParsesStructuredResponse(t *testing.T) {
	gen := &fakeGen{responses: []string{`{"analysis": "weak moat", "claims": [{"text": "no pricing data", "type": "needs_validation"}]}`}}
	w := NewSkeptic("sess-1", testDeps(gen))

	res, err := w.Run(context.Background(), Inputs{Document: "doc", Phase: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Parsed == nil {
		t.Fatal("expected parsed result")
	}
	if res.Unstructured != "" {
		t.Error("unstructured should be empty when parsing succeeds")
	}
	if len(res.Claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(res.Claims))
	}
	claim := res.Claims[0]
	if claim.Agent != RoleSkeptic || claim.Phase != 2 {
		t.Errorf("claim attribution wrong: agent=%q phase=%d", claim.Agent, claim.Phase)
	}
	if claim.Type != review.EvidenceNeedsValidation {
		t.Errorf("expected needs_validation, got %q", claim.Type)
	}
}

func TestWorkerWrapsUnstructuredResponse(t *testing.T) {
	gen := &fakeGen{responses: []string{"I simply refuse to emit JSON today."}}
	w := NewCustomer("sess-1", testDeps(gen))

	res, err := w.Run(context.Background(), Inputs{Document: "doc"})
	if err != nil {
		t.Fatalf("parse failure must not abort the session: %v", err)
	}
	if res.Parsed != nil {
		t.Error("expected no parsed result")
	}
	if res.Unstructured == "" {
		t.Error("expected raw text preserved as unstructured")
	}
}

func TestWorkerPropagatesGenerationError(t *testing.T) {
	gen := &fakeGen{err: llm.NewFatalError(errors.New("invalid API key"))}
	w := NewMarket("sess-1", testDeps(gen))

	if _, err := w.Run(context.Background(), Inputs{Document: "doc"}); err == nil {
		t.Fatal("expected generation error to propagate")
	}
}

func TestExtractClaims(t *testing.T) {
	w := NewBuilder("sess-1", testDeps(&fakeGen{}))
	lookup := []review.Source{
		{Title: "Gartner report", URL: "https://example.com/g"},
		{Title: "Census data", URL: "https://example.com/c"},
	}

	t.Run("drops unknown claim types", func(t *testing.T) {
		parsed := map[string]any{"claims": []any{
			map[string]any{"text": "good", "type": "verified"},
			map[string]any{"text": "bad", "type": "speculation"},
			map[string]any{"text": "", "type": "verified"},
		}}
		claims := w.extractClaims(parsed, 1, nil)
		if len(claims) != 1 {
			t.Fatalf("expected 1 claim, got %d", len(claims))
		}
		if claims[0].Text != "good" {
			t.Errorf("wrong claim kept: %q", claims[0].Text)
		}
	})

	t.Run("resolves source indices", func(t *testing.T) {
		parsed := map[string]any{"claims": []any{
			map[string]any{"text": "tam is large", "type": "verified", "sources": []any{float64(1), float64(9)}},
		}}
		claims := w.extractClaims(parsed, 1, lookup)
		if len(claims) != 1 {
			t.Fatalf("expected 1 claim, got %d", len(claims))
		}
		if len(claims[0].Sources) != 1 {
			t.Fatalf("out-of-range index must be skipped, got %d sources", len(claims[0].Sources))
		}
		if claims[0].Sources[0].Title != "Census data" {
			t.Errorf("wrong source resolved: %q", claims[0].Sources[0].Title)
		}
	})

	t.Run("no claims array", func(t *testing.T) {
		if claims := w.extractClaims(map[string]any{"analysis": "fine"}, 1, nil); claims != nil {
			t.Errorf("expected nil claims, got %v", claims)
		}
	})
}

func TestJudgeVerdict(t *testing.T) {
	valid := `{
		"decision": "Pivot",
		"confidence": 0.7,
		"reasoning": "the channel assumption failed under examination",
		"scorecard": {"overall_score": 45, "market_score": 60, "customer_score": 30, "feasibility_score": 55, "differentiation_score": 40},
		"kill_shots": [{"title": "CAC", "description": "CAC exceeds LTV in every modeled segment", "severity": "critical", "agent": "skeptic"}],
		"test_plan": [{"day": 3, "task": "run 10 pricing interviews", "success_criteria": "3 verbal commits"}],
		"investor_readiness": {"score": 20, "verdict": "NotReady", "reasons": ["no validated channel"]},
		"pivot_ideas": ["sell to agencies instead"]
	}`

	t.Run("parses and validates", func(t *testing.T) {
		j := NewJudge("sess-1", testDeps(&fakeGen{responses: []string{valid}}))
		v, raw, err := j.Verdict(context.Background(), "doc", "record", "")
		if err != nil {
			t.Fatalf("Verdict failed: %v", err)
		}
		if raw == "" {
			t.Error("raw response should be returned for the transcript")
		}
		if v.Decision != review.DecisionPivot {
			t.Errorf("expected Pivot, got %q", v.Decision)
		}
		if v.Scorecard.Overall != 45 {
			t.Errorf("scorecard not parsed: %+v", v.Scorecard)
		}
	})

	t.Run("rejects unstructured verdict", func(t *testing.T) {
		j := NewJudge("sess-1", testDeps(&fakeGen{responses: []string{"it is bad, kill it"}}))
		if _, _, err := j.Verdict(context.Background(), "doc", "record", ""); err == nil {
			t.Fatal("unstructured verdict must be an error")
		}
	})

	t.Run("rejects invalid verdict", func(t *testing.T) {
		j := NewJudge("sess-1", testDeps(&fakeGen{responses: []string{`{"decision": "Maybe", "reasoning": "x", "confidence": 0.5}`}}))
		if _, _, err := j.Verdict(context.Background(), "doc", "record", ""); err == nil {
			t.Fatal("invalid decision must be an error")
		}
	})
}

func TestJudgeClarifyDegrades(t *testing.T) {
	j := NewJudge("sess-1", testDeps(&fakeGen{responses: []string{"the core claim is unclear to me"}}))
	c, _, err := j.Clarify(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Clarify must degrade, not fail: %v", err)
	}
	if c.CoreClaim == "" {
		t.Error("raw text should be preserved as the core claim")
	}
}

func TestCrossExaminerSeparatesDefense(t *testing.T) {
	gen := &fakeGen{responses: []string{`{"exchanges": []}`}}
	w := NewCrossExaminer("sess-1", testDeps(gen))

	_, err := w.Run(context.Background(), Inputs{
		Document: "doc",
		Analyses: map[string]string{
			"skeptic":  "the unit economics are fantasy",
			"advocate": "our pilot shows otherwise",
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	prompt := gen.requests[0].Messages[1].Content
	if !strings.Contains(prompt, "our pilot shows otherwise") {
		t.Error("defense missing from prompt")
	}
	defenseIdx := strings.Index(prompt, "Defense offered:")
	attackIdx := strings.Index(prompt, "the unit economics are fantasy")
	if defenseIdx < 0 || attackIdx < 0 || attackIdx > defenseIdx {
		t.Error("attacks should precede the defense section")
	}
}
