// Package agents implements the worker call adapters for each review role:
// skeptic, customer, market, builder, judge, and cross-examiner. Adapters
// format role prompts, invoke generation through the governor, parse
// structured responses with a documented fallback, and extract evidence
// claims.
package agents

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/llm"
	"github.com/c360studio/tribunal/review"
)

// Generator is the generation call dependency. Satisfied by *llm.Client.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Inputs carries the structured inputs a worker formats into its prompt.
type Inputs struct {
	// Document is the submitted text under review.
	Document string

	// Phase is the current phase index, attached to extracted claims.
	Phase int

	// Clarification is the judge's phase-1 output, when available.
	Clarification string

	// Analyses maps analyst name to response for rebuttal/cross-exam phases.
	Analyses map[string]string

	// HistoricalContext is the formatted precedent block, possibly empty.
	HistoricalContext string

	// Sources is the grounded-source lookup claims may index into.
	Sources []review.Source
}

// Result is a worker's processed output.
type Result struct {
	// Parsed is the structured response. Nil when parsing failed.
	Parsed map[string]any

	// Unstructured holds the raw text when the response was not valid
	// structured data. Exactly one of Parsed/Unstructured is set.
	Unstructured string

	// Claims are the evidence claims extracted from the parsed response.
	Claims []review.EvidenceClaim

	// Raw is the unmodified generation output.
	Raw string
}

// Worker is the adapter each review role implements.
type Worker interface {
	// Name returns the role name recorded on transcript events and claims.
	Name() string

	// Run formats the role prompt, invokes generation, and parses the
	// response. Parsing failures degrade to an unstructured Result; only
	// generation failures return an error.
	Run(ctx context.Context, in Inputs) (*Result, error)
}

// BaseWorker implements the shared adapter mechanics. Role constructors embed
// it with a role-specific prompt builder.
type BaseWorker struct {
	name      string
	sessionID string
	promptFn  func(Inputs) []llm.Message
	gen       Generator
	gov       *governor.Governor
	logger    *slog.Logger
}

// NewBaseWorker creates a worker adapter. sessionID keys the governor scope
// so one session's calls serialize without blocking other sessions.
func NewBaseWorker(name, sessionID string, promptFn func(Inputs) []llm.Message, gen Generator, gov *governor.Governor, logger *slog.Logger) *BaseWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseWorker{
		name:      name,
		sessionID: sessionID,
		promptFn:  promptFn,
		gen:       gen,
		gov:       gov,
		logger:    logger,
	}
}

// Name returns the role name.
func (w *BaseWorker) Name() string {
	return w.name
}

// Run implements Worker.
func (w *BaseWorker) Run(ctx context.Context, in Inputs) (*Result, error) {
	raw, err := w.invoke(ctx, w.promptFn(in))
	if err != nil {
		return nil, err
	}
	return w.process(raw, in.Phase, in.Sources), nil
}

// invoke sends the prompt through the governor's per-session scope.
func (w *BaseWorker) invoke(ctx context.Context, messages []llm.Message) (string, error) {
	var resp *llm.Response
	err := w.gov.Invoke(ctx, w.sessionID, func() error {
		var callErr error
		resp, callErr = w.gen.Complete(ctx, llm.Request{Messages: messages})
		return callErr
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// process parses the raw response and extracts claims. Parsing never fails:
// a response that is not valid structured data is wrapped as an unstructured
// result so one malformed response cannot abort the session.
func (w *BaseWorker) process(raw string, phase int, sources []review.Source) *Result {
	extracted := llm.ExtractJSON(raw)
	if extracted == "" {
		w.logger.Warn("Response is not structured, wrapping raw text", "agent", w.name)
		return &Result{Unstructured: raw, Raw: raw}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		w.logger.Warn("Structured response failed to parse, wrapping raw text",
			"agent", w.name,
			"error", err)
		return &Result{Unstructured: raw, Raw: raw}
	}

	return &Result{
		Parsed: parsed,
		Claims: w.extractClaims(parsed, phase, sources),
		Raw:    raw,
	}
}

// extractClaims scans the parsed response's claims array. Entries with an
// unrecognized type are silently discarded. Source entries are resolved by
// index against the grounded-source lookup.
func (w *BaseWorker) extractClaims(parsed map[string]any, phase int, lookup []review.Source) []review.EvidenceClaim {
	rawClaims, ok := parsed["claims"].([]any)
	if !ok {
		return nil
	}

	var claims []review.EvidenceClaim
	for _, rc := range rawClaims {
		entry, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		text, _ := entry["text"].(string)
		claimType, _ := entry["type"].(string)
		if text == "" || !review.ValidEvidenceType(claimType) {
			continue
		}

		var sources []review.Source
		if indices, ok := entry["sources"].([]any); ok {
			for _, idx := range indices {
				i, ok := idx.(float64)
				if !ok {
					continue
				}
				n := int(i)
				if n >= 0 && n < len(lookup) {
					sources = append(sources, lookup[n])
				}
			}
		}

		claims = append(claims, review.EvidenceClaim{
			Text:    text,
			Type:    review.EvidenceType(claimType),
			Agent:   w.name,
			Phase:   phase,
			Sources: sources,
		})
	}

	return claims
}
