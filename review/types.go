// Package review defines the domain model for adversarial document review:
// sessions, transcript events, evidence claims, and verdicts, plus the
// session store abstraction and domain detection vocabulary.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session. Completed and failed are
// terminal: once reached, no further phase transitions occur.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase identifies an ordered stage of the review workflow.
type Phase string

const (
	PhaseClarify     Phase = "clarify"
	PhaseAnalysis    Phase = "independent-analysis"
	PhaseRebuttal    Phase = "rebuttal"
	PhaseCrossExam   Phase = "cross-examination"
	PhaseVerdict     Phase = "verdict"
)

// FullPhases is the five-stage review sequence.
var FullPhases = []Phase{PhaseClarify, PhaseAnalysis, PhaseRebuttal, PhaseCrossExam, PhaseVerdict}

// ShortPhases is the two-stage subset used in short mode.
var ShortPhases = []Phase{PhaseClarify, PhaseVerdict}

// EventKind classifies transcript events.
type EventKind string

const (
	EventPhaseStart  EventKind = "phase_start"
	EventPhaseOutput EventKind = "phase_output"
	EventQualityGate EventKind = "quality_gate"
	EventError       EventKind = "error"
)

// TranscriptEvent is an immutable record appended by the orchestrator.
type TranscriptEvent struct {
	Agent     string         `json:"agent"`
	Phase     int            `json:"phase"`
	Kind      EventKind      `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EvidenceType is the closed set of claim classifications. Claims with an
// unrecognized type are silently discarded at extraction.
type EvidenceType string

const (
	EvidenceVerified        EvidenceType = "verified"
	EvidenceAssumption      EvidenceType = "assumption"
	EvidenceNeedsValidation EvidenceType = "needs_validation"
)

// ValidEvidenceType reports membership in the closed set.
func ValidEvidenceType(t string) bool {
	switch EvidenceType(t) {
	case EvidenceVerified, EvidenceAssumption, EvidenceNeedsValidation:
		return true
	}
	return false
}

// Source is a grounding reference backing a claim.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// EvidenceClaim is a tagged assertion extracted from a worker's output.
// Never mutated after creation.
type EvidenceClaim struct {
	Text    string       `json:"text"`
	Type    EvidenceType `json:"type"`
	Agent   string       `json:"agent"`
	Phase   int          `json:"phase"`
	Sources []Source     `json:"sources,omitempty"`
}

// Decision is the categorical verdict outcome.
type Decision string

const (
	DecisionProceed       Decision = "Proceed"
	DecisionPivot         Decision = "Pivot"
	DecisionKill          Decision = "Kill"
	DecisionNeedsMoreData Decision = "NeedsMoreData"
)

// ValidDecision reports membership in the decision set.
func ValidDecision(d string) bool {
	switch Decision(d) {
	case DecisionProceed, DecisionPivot, DecisionKill, DecisionNeedsMoreData:
		return true
	}
	return false
}

// Scorecard holds the verdict's dimension scores, each bounded 0-100.
type Scorecard struct {
	Overall         int `json:"overall_score"`
	Market          int `json:"market_score"`
	Customer        int `json:"customer_score"`
	Feasibility     int `json:"feasibility_score"`
	Differentiation int `json:"differentiation_score"`
}

// Dimensions returns the scorecard values in declaration order.
func (s Scorecard) Dimensions() []int {
	return []int{s.Overall, s.Market, s.Customer, s.Feasibility, s.Differentiation}
}

// Validate checks all dimensions are within bounds.
func (s Scorecard) Validate() error {
	for _, d := range s.Dimensions() {
		if d < 0 || d > 100 {
			return fmt.Errorf("scorecard dimension %d out of range [0,100]", d)
		}
	}
	return nil
}

// KillShot is a critical flaw that could kill the reviewed document's case.
type KillShot struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"` // critical, high, or medium
	Agent       string `json:"agent"`
}

// TestPlanItem is one day of the bounded validation plan.
type TestPlanItem struct {
	Day             int    `json:"day"`
	Task            string `json:"task"`
	SuccessCriteria string `json:"success_criteria"`
}

// InvestorReadiness summarizes how investable the document's case is now.
type InvestorReadiness struct {
	Score   int      `json:"score"`
	Verdict string   `json:"verdict"` // NotReady, Warm, or InvestorReady
	Reasons []string `json:"reasons,omitempty"`
}

// Verdict is the final structured decision, created once by the last phase
// and immutable thereafter.
type Verdict struct {
	Decision          Decision          `json:"decision"`
	Scorecard         Scorecard         `json:"scorecard"`
	KillShots         []KillShot        `json:"kill_shots,omitempty"`
	Assumptions       []string          `json:"assumptions,omitempty"`
	Recommendations   []string          `json:"recommendations,omitempty"`
	TestPlan          []TestPlanItem    `json:"test_plan,omitempty"`
	PivotIdeas        []string          `json:"pivot_ideas,omitempty"`
	InvestorReadiness InvestorReadiness `json:"investor_readiness"`
	Reasoning         string            `json:"reasoning"`
	Confidence        float64           `json:"confidence"`
}

// maxKillShots bounds the ranked flaw list.
const maxKillShots = 5

// maxTestPlanDays bounds the validation plan.
const maxTestPlanDays = 7

// maxPivotIdeas bounds alternative directions offered with a Pivot decision.
const maxPivotIdeas = 3

// Validate checks verdict invariants. A verdict failing validation is fatal
// to its session.
func (v *Verdict) Validate() error {
	if !ValidDecision(string(v.Decision)) {
		return fmt.Errorf("unknown decision %q", v.Decision)
	}
	if err := v.Scorecard.Validate(); err != nil {
		return err
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", v.Confidence)
	}
	if len(v.KillShots) > maxKillShots {
		return fmt.Errorf("too many kill shots: %d (max %d)", len(v.KillShots), maxKillShots)
	}
	if len(v.TestPlan) > maxTestPlanDays {
		return fmt.Errorf("test plan too long: %d days (max %d)", len(v.TestPlan), maxTestPlanDays)
	}
	if len(v.PivotIdeas) > maxPivotIdeas {
		return fmt.Errorf("too many pivot ideas: %d (max %d)", len(v.PivotIdeas), maxPivotIdeas)
	}
	if v.Reasoning == "" {
		return errors.New("reasoning is required")
	}
	return nil
}

// Mode selects the phase sequence for a session.
type Mode string

const (
	ModeFull  Mode = "full"
	ModeShort Mode = "short"
)

// Phases returns the phase sequence for the mode.
func (m Mode) Phases() []Phase {
	if m == ModeShort {
		return ShortPhases
	}
	return FullPhases
}

// Session is the unit of work: one end-to-end run of the phased review for
// one submitted document. Mutated exclusively by the orchestrator driving it.
type Session struct {
	ID         string            `json:"id"`
	Mode       Mode              `json:"mode"`
	Document   string            `json:"document"`
	Domain     string            `json:"domain,omitempty"`
	Sources    []Source          `json:"sources,omitempty"`
	PhaseIndex int               `json:"phase_index"`
	Status     Status            `json:"status"`
	Transcript []TranscriptEvent `json:"transcript"`
	Evidence   []EvidenceClaim   `json:"evidence"`
	Verdict    *Verdict          `json:"verdict,omitempty"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewSession creates a pending session at phase 0.
func NewSession(document string, mode Mode) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New().String(),
		Mode:      mode,
		Document:  document,
		Status:    StatusPending,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// AppendEvent appends a transcript event, stamping it with the current time.
// The phase index attached to events is non-decreasing over the session's
// lifetime because the orchestrator only ever advances PhaseIndex.
func (s *Session) AppendEvent(agent string, phase int, kind EventKind, payload map[string]any) {
	s.Transcript = append(s.Transcript, TranscriptEvent{
		Agent:     agent,
		Phase:     phase,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
}

// AppendEvidence appends claims to the cumulative evidence list.
func (s *Session) AppendEvidence(claims []EvidenceClaim) {
	s.Evidence = append(s.Evidence, claims...)
	s.UpdatedAt = time.Now().UTC()
}

// DecisionEvidence is the persistent record written to the historical corpus
// when a session completes.
type DecisionEvidence struct {
	SessionID       string     `json:"session_id"`
	Summary         string     `json:"summary"`
	Embedding       []float64  `json:"embedding"`
	Decision        Decision   `json:"decision"`
	OverallScore    int        `json:"overall_score"`
	KillShots       []KillShot `json:"kill_shots,omitempty"`
	Assumptions     []string   `json:"assumptions,omitempty"`
	Recommendations []string   `json:"recommendations,omitempty"`
	Domain          string     `json:"domain"`
	Confidence      float64    `json:"confidence"`
	Timestamp       time.Time  `json:"timestamp"`
}

// ErrNotFound is returned when a session does not exist in the store.
var ErrNotFound = errors.New("session not found")

// SessionStore persists session snapshots. Put is a whole-snapshot overwrite;
// the orchestrator is the single writer for a given session id.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
}
