// Package orchestrator drives review sessions through their phased workflow:
// it invokes the worker adapters, appends transcript and evidence records,
// persists a snapshot after every append, and finalizes the verdict.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/tribunal/agents"
	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/llm"
	"github.com/c360studio/tribunal/ranking"
	"github.com/c360studio/tribunal/review"
	"github.com/c360studio/tribunal/vectorstore"
)

// orchestratorAgent is the agent identifier on phase-start and error events.
const orchestratorAgent = "orchestrator"

// defaultHistoryN is the number of precedents retrieved for enrichment.
const defaultHistoryN = 3

// Runner executes review sessions. It is the single writer for every session
// it runs.
type Runner struct {
	store    review.SessionStore
	gen      agents.Generator
	gov      *governor.Governor
	embedder llm.Embedder
	engine   *ranking.Engine
	index    vectorstore.Index
	detector *review.DomainDetector
	metrics  *Metrics
	logger   *slog.Logger
	historyN int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMetrics sets the session counters.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithHistory enables precedent enrichment and outcome indexing. The embedder
// produces query vectors, the engine ranks precedents out of the index, and
// completed sessions are written back to the same index.
func WithHistory(embedder llm.Embedder, engine *ranking.Engine, index vectorstore.Index) RunnerOption {
	return func(r *Runner) {
		r.embedder = embedder
		r.engine = engine
		r.index = index
	}
}

// WithHistoryN sets how many precedents enrichment retrieves.
func WithHistoryN(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.historyN = n
		}
	}
}

// WithDetector overrides the domain detector.
func WithDetector(d *review.DomainDetector) RunnerOption {
	return func(r *Runner) {
		r.detector = d
	}
}

// NewRunner creates a Runner over the given store, generation client, and
// governor.
func NewRunner(store review.SessionStore, gen agents.Generator, gov *governor.Governor, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:    store,
		gen:      gen,
		gov:      gov,
		metrics:  NopMetrics(),
		logger:   slog.Default(),
		historyN: defaultHistoryN,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.detector == nil {
		r.detector = review.NewDomainDetector(review.WithDetectorLogger(r.logger))
	}
	return r
}

// runState accumulates the cross-phase working set for one session.
type runState struct {
	clarification string
	analyses      map[string]string
	record        strings.Builder
	embedding     []float64
	sources       []review.Source
}

// Run drives the session from its current state to a terminal one. The
// session must already be persisted; Run transitions it to in_progress,
// executes each phase of its mode, and leaves it completed or failed. The
// governor scope keyed by the session id is released on return.
func (r *Runner) Run(ctx context.Context, session *review.Session) error {
	if session.Status.Terminal() {
		r.logger.Warn("Refusing to run terminal session",
			"session_id", session.ID,
			"status", session.Status)
		return nil
	}

	defer r.gov.ReleaseScope(session.ID)

	r.metrics.started.Inc()
	session.Status = review.StatusInProgress
	session.Domain = r.detector.Resolve(session.Document, session.Domain)
	r.persist(ctx, session)

	state := &runState{analyses: make(map[string]string), sources: session.Sources}

	for i, phase := range session.Mode.Phases() {
		phaseNum := i + 1
		session.PhaseIndex = phaseNum

		session.AppendEvent(orchestratorAgent, phaseNum, review.EventPhaseStart, map[string]any{
			"phase": string(phase),
		})
		r.persist(ctx, session)

		if err := r.runPhase(ctx, session, phase, phaseNum, state); err != nil {
			return r.fail(ctx, session, phaseNum, err)
		}
	}

	session.Status = review.StatusCompleted
	r.persist(ctx, session)
	r.metrics.completed.Inc()

	r.indexOutcome(ctx, session, state)

	r.logger.Info("Review session completed",
		"session_id", session.ID,
		"decision", session.Verdict.Decision,
		"confidence", session.Verdict.Confidence)
	return nil
}

func (r *Runner) runPhase(ctx context.Context, session *review.Session, phase review.Phase, phaseNum int, state *runState) error {
	switch phase {
	case review.PhaseClarify:
		return r.runClarify(ctx, session, phaseNum, state)
	case review.PhaseAnalysis:
		return r.runAnalysis(ctx, session, phaseNum, state)
	case review.PhaseRebuttal:
		return r.runRebuttal(ctx, session, phaseNum, state)
	case review.PhaseCrossExam:
		return r.runCrossExam(ctx, session, phaseNum, state)
	case review.PhaseVerdict:
		return r.runVerdict(ctx, session, phaseNum, state)
	default:
		return fmt.Errorf("unknown phase: %s", phase)
	}
}

func (r *Runner) runClarify(ctx context.Context, session *review.Session, phaseNum int, state *runState) error {
	judge := agents.NewJudge(session.ID, r.agentDeps())
	clarification, raw, err := judge.Clarify(ctx, session.Document)
	if err != nil {
		return fmt.Errorf("clarification: %w", err)
	}

	state.clarification = clarification.CoreClaim
	if len(clarification.ReviewFocus) > 0 {
		state.clarification += "\nReview focus: " + strings.Join(clarification.ReviewFocus, "; ")
	}
	state.record.WriteString("[judge clarification]\n" + raw + "\n\n")

	session.AppendEvent(agents.RoleJudge, phaseNum, review.EventPhaseOutput, map[string]any{
		"raw":        raw,
		"core_claim": clarification.CoreClaim,
	})
	r.persist(ctx, session)
	return nil
}

// runAnalysis fans the four analysts out concurrently. The governor's
// per-session scope serializes the underlying generation calls, so the
// concurrency here only overlaps queueing, not provider load.
func (r *Runner) runAnalysis(ctx context.Context, session *review.Session, phaseNum int, state *runState) error {
	historical, embedding := r.historicalContext(ctx, session.ID, session.Document, session.Domain)
	state.embedding = embedding

	inputs := agents.Inputs{
		Document:          session.Document,
		Phase:             phaseNum,
		Clarification:     state.clarification,
		HistoricalContext: historical,
		Sources:           state.sources,
	}

	workers := agents.NewAnalysts(session.ID, r.agentDeps())
	type analystResult struct {
		name string
		res  *agents.Result
		err  error
	}
	results := make([]analystResult, len(workers))

	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w agents.Worker) {
			defer wg.Done()
			res, err := w.Run(ctx, inputs)
			results[i] = analystResult{name: w.Name(), res: res, err: err}
		}(i, w)
	}
	wg.Wait()

	for _, ar := range results {
		if ar.err != nil {
			return fmt.Errorf("%s analysis: %w", ar.name, ar.err)
		}
		r.recordResult(session, ar.name, phaseNum, ar.res, state)
		r.persist(ctx, session)
	}

	r.assessPhase(ctx, session, review.PhaseAnalysis, phaseNum, state.analyses)
	return nil
}

func (r *Runner) runRebuttal(ctx context.Context, session *review.Session, phaseNum int, state *runState) error {
	advocate := agents.NewAdvocate(session.ID, r.agentDeps())
	res, err := advocate.Run(ctx, agents.Inputs{
		Document: session.Document,
		Phase:    phaseNum,
		Analyses: copyAnalyses(state.analyses),
		Sources:  state.sources,
	})
	if err != nil {
		return fmt.Errorf("rebuttal: %w", err)
	}

	r.recordResult(session, advocate.Name(), phaseNum, res, state)
	r.persist(ctx, session)
	return nil
}

func (r *Runner) runCrossExam(ctx context.Context, session *review.Session, phaseNum int, state *runState) error {
	examiner := agents.NewCrossExaminer(session.ID, r.agentDeps())
	res, err := examiner.Run(ctx, agents.Inputs{
		Document: session.Document,
		Phase:    phaseNum,
		Analyses: copyAnalyses(state.analyses),
		Sources:  state.sources,
	})
	if err != nil {
		return fmt.Errorf("cross-examination: %w", err)
	}

	r.recordResult(session, examiner.Name(), phaseNum, res, state)
	r.persist(ctx, session)

	r.assessPhase(ctx, session, review.PhaseCrossExam, phaseNum, map[string]string{
		examiner.Name(): res.Raw,
	})
	return nil
}

func (r *Runner) runVerdict(ctx context.Context, session *review.Session, phaseNum int, state *runState) error {
	judge := agents.NewJudge(session.ID, r.agentDeps())
	verdict, raw, err := judge.Verdict(ctx, session.Document, state.record.String(), formatEvidence(session.Evidence))
	if err != nil {
		return fmt.Errorf("verdict: %w", err)
	}

	session.Verdict = verdict
	session.AppendEvent(agents.RoleJudge, phaseNum, review.EventPhaseOutput, map[string]any{
		"raw":      raw,
		"decision": string(verdict.Decision),
	})
	r.persist(ctx, session)
	return nil
}

// recordResult appends the worker's transcript event and evidence claims and
// folds its output into the cross-phase state.
func (r *Runner) recordResult(session *review.Session, name string, phaseNum int, res *agents.Result, state *runState) {
	payload := map[string]any{"raw": res.Raw}
	if res.Unstructured != "" {
		payload["unstructured"] = true
	}
	session.AppendEvent(name, phaseNum, review.EventPhaseOutput, payload)
	session.AppendEvidence(res.Claims)

	state.analyses[name] = res.Raw
	state.record.WriteString(fmt.Sprintf("[%s]\n%s\n\n", name, res.Raw))
}

// assessPhase runs the advisory quality gate and records its result. Gate
// failures are observability only; they never block or retry the phase.
func (r *Runner) assessPhase(ctx context.Context, session *review.Session, phase review.Phase, phaseNum int, analyses map[string]string) {
	judge := agents.NewJudge(session.ID, r.agentDeps())
	gate, err := judge.AssessPhase(ctx, string(phase), analyses)
	if err != nil {
		r.logger.Warn("Quality assessment failed, continuing",
			"session_id", session.ID,
			"phase", phase,
			"error", err)
		return
	}

	if !gate.Pass {
		r.logger.Warn("Phase output failed quality assessment",
			"session_id", session.ID,
			"phase", phase,
			"issues", strings.Join(gate.Issues, "; "))
	}
	session.AppendEvent(agents.RoleJudge, phaseNum, review.EventQualityGate, map[string]any{
		"pass":   gate.Pass,
		"issues": gate.Issues,
	})
	r.persist(ctx, session)
}

// fail transitions the session to failed, preserving the transcript and the
// verbatim error message.
func (r *Runner) fail(ctx context.Context, session *review.Session, phaseNum int, err error) error {
	session.Status = review.StatusFailed
	session.Error = err.Error()
	session.AppendEvent(orchestratorAgent, phaseNum, review.EventError, map[string]any{
		"error": err.Error(),
	})
	r.persist(ctx, session)
	r.metrics.failed.Inc()

	r.logger.Error("Review session failed",
		"session_id", session.ID,
		"phase", phaseNum,
		"error", err)
	return err
}

// persist writes the current snapshot. Mid-run persistence failures are
// logged, not fatal: the in-memory session remains authoritative and the next
// append retries the write.
func (r *Runner) persist(ctx context.Context, session *review.Session) {
	if err := r.store.Put(ctx, session); err != nil {
		r.logger.Warn("Session snapshot write failed",
			"session_id", session.ID,
			"error", err)
	}
}

// indexOutcome writes the completed session's decision evidence into the
// vector index so future reviews can retrieve it. Best effort.
func (r *Runner) indexOutcome(ctx context.Context, session *review.Session, state *runState) {
	if r.index == nil || session.Verdict == nil {
		return
	}

	embedding := state.embedding
	if embedding == nil && r.embedder != nil {
		err := r.gov.Invoke(ctx, governor.EmbeddingScope, func() error {
			vectors, embedErr := r.embedder.Embed(ctx, []string{summarize(session.Document)})
			if embedErr == nil && len(vectors) > 0 {
				embedding = vectors[0]
			}
			return embedErr
		})
		if err != nil {
			r.logger.Warn("Outcome embedding failed, skipping indexing",
				"session_id", session.ID,
				"error", err)
			return
		}
	}
	if embedding == nil {
		return
	}

	v := session.Verdict
	killShots := make([]vectorstore.KillShot, 0, len(v.KillShots))
	for _, ks := range v.KillShots {
		killShots = append(killShots, vectorstore.KillShot{
			Title:       ks.Title,
			Description: ks.Description,
			Severity:    ks.Severity,
			Agent:       ks.Agent,
		})
	}

	doc := vectorstore.Document{
		Summary:         summarize(session.Document),
		Decision:        string(v.Decision),
		OverallScore:    v.Scorecard.Overall,
		KillShots:       killShots,
		Assumptions:     v.Assumptions,
		Recommendations: v.Recommendations,
		Domain:          session.Domain,
	}
	meta := vectorstore.Metadata{
		SessionID:  session.ID,
		Decision:   string(v.Decision),
		Domain:     session.Domain,
		Confidence: v.Confidence,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := r.index.Upsert(ctx, session.ID, embedding, doc, meta); err != nil {
		r.logger.Warn("Outcome indexing failed",
			"session_id", session.ID,
			"error", err)
	}
}

func (r *Runner) agentDeps() agents.Deps {
	return agents.Deps{Gen: r.gen, Gov: r.gov, Logger: r.logger}
}

func copyAnalyses(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// formatEvidence renders the cumulative evidence ledger for the verdict
// prompt, grouped by claim type.
func formatEvidence(claims []review.EvidenceClaim) string {
	if len(claims) == 0 {
		return ""
	}

	byType := make(map[review.EvidenceType][]review.EvidenceClaim)
	for _, c := range claims {
		byType[c.Type] = append(byType[c.Type], c)
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var b strings.Builder
	for _, t := range types {
		fmt.Fprintf(&b, "%s:\n", t)
		for _, c := range byType[review.EvidenceType(t)] {
			fmt.Fprintf(&b, "  - (%s, phase %d) %s\n", c.Agent, c.Phase, c.Text)
		}
	}
	return b.String()
}
