package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/tribunal/agents/prompts"
	"github.com/c360studio/tribunal/llm"
	"github.com/c360studio/tribunal/review"
)

// Judge runs the presiding-judge calls: opening clarification, per-phase
// quality gates, and the final verdict. Unlike analyst output, the verdict
// must parse into the typed structure; a verdict that cannot be parsed or
// validated is a session failure, not a degradation.
type Judge struct {
	worker *BaseWorker
	logger *slog.Logger
}

// Clarification is the judge's phase-1 framing of the review.
type Clarification struct {
	CoreClaim   string   `json:"core_claim"`
	ReviewFocus []string `json:"review_focus"`
	Ambiguities []string `json:"ambiguities"`
}

// GateResult is the judge's advisory quality assessment of a phase.
type GateResult struct {
	Pass   bool     `json:"pass"`
	Issues []string `json:"issues"`
}

// NewJudge builds the judge for a session.
func NewJudge(sessionID string, d Deps) *Judge {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// The prompt is built per call; the base worker only contributes the
	// governed invoke and parse mechanics.
	w := NewBaseWorker(RoleJudge, sessionID, nil, d.Gen, d.Gov, logger)
	return &Judge{worker: w, logger: logger}
}

// Clarify asks the judge to frame the review. A response that does not parse
// degrades to a Clarification carrying the raw text as the core claim, so the
// session proceeds either way.
func (j *Judge) Clarify(ctx context.Context, document string) (*Clarification, string, error) {
	raw, err := j.invoke(ctx, prompts.Clarify(document))
	if err != nil {
		return nil, "", err
	}

	var c Clarification
	if extracted := llm.ExtractJSON(raw); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), &c); err == nil && c.CoreClaim != "" {
			return &c, raw, nil
		}
	}
	j.logger.Warn("Clarification response is not structured, using raw text")
	return &Clarification{CoreClaim: raw}, raw, nil
}

// AssessPhase runs the advisory quality gate over a phase's output. Gate
// failures never block the session; a response that does not parse is
// reported as a pass with the parse problem noted.
func (j *Judge) AssessPhase(ctx context.Context, phase string, analyses map[string]string) (*GateResult, error) {
	raw, err := j.invoke(ctx, prompts.QualityGate(phase, analyses))
	if err != nil {
		return nil, err
	}

	var g GateResult
	if extracted := llm.ExtractJSON(raw); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), &g); err == nil {
			return &g, nil
		}
	}
	return &GateResult{Pass: true, Issues: []string{"quality assessment response was not structured"}}, nil
}

// Verdict asks the judge for the final verdict and parses it into the typed
// structure. The verdict is validated before being returned; invalid verdicts
// are an error because there is no degraded form of a decision.
func (j *Judge) Verdict(ctx context.Context, document, record, evidence string) (*review.Verdict, string, error) {
	raw, err := j.invoke(ctx, prompts.Verdict(document, record, evidence))
	if err != nil {
		return nil, "", err
	}

	extracted := llm.ExtractJSON(raw)
	if extracted == "" {
		return nil, raw, fmt.Errorf("verdict response contains no structured data")
	}

	var v review.Verdict
	if err := json.Unmarshal([]byte(extracted), &v); err != nil {
		return nil, raw, fmt.Errorf("parsing verdict: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, raw, fmt.Errorf("invalid verdict: %w", err)
	}
	return &v, raw, nil
}

func (j *Judge) invoke(ctx context.Context, prompt string) (string, error) {
	return j.worker.invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompts.SystemJudge},
		{Role: llm.RoleUser, Content: prompt},
	})
}
