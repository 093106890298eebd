package agents

import (
	"log/slog"

	"github.com/c360studio/tribunal/agents/prompts"
	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/llm"
)

// Analyst role names. These appear on transcript events and evidence claims.
const (
	RoleSkeptic       = "skeptic"
	RoleCustomer      = "customer"
	RoleMarket        = "market"
	RoleBuilder       = "builder"
	RoleJudge         = "judge"
	RoleCrossExaminer = "cross_examiner"
)

// Deps bundles the shared dependencies role constructors need.
type Deps struct {
	Gen    Generator
	Gov    *governor.Governor
	Logger *slog.Logger
}

// NewSkeptic builds the adversarial analyst for a session.
func NewSkeptic(sessionID string, d Deps) *BaseWorker {
	return newAnalyst(RoleSkeptic, prompts.SystemSkeptic, sessionID, d)
}

// NewCustomer builds the target-customer analyst for a session.
func NewCustomer(sessionID string, d Deps) *BaseWorker {
	return newAnalyst(RoleCustomer, prompts.SystemCustomer, sessionID, d)
}

// NewMarket builds the market analyst for a session.
func NewMarket(sessionID string, d Deps) *BaseWorker {
	return newAnalyst(RoleMarket, prompts.SystemMarket, sessionID, d)
}

// NewBuilder builds the execution-feasibility analyst for a session.
func NewBuilder(sessionID string, d Deps) *BaseWorker {
	return newAnalyst(RoleBuilder, prompts.SystemBuilder, sessionID, d)
}

func newAnalyst(name, system, sessionID string, d Deps) *BaseWorker {
	promptFn := func(in Inputs) []llm.Message {
		var sources string
		if len(in.Sources) > 0 {
			titles := make([]string, len(in.Sources))
			for i, s := range in.Sources {
				titles[i] = s.Title + " " + s.URL
			}
			sources = prompts.FormatSources(titles)
		}
		return []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompts.Analysis(in.Document, in.Clarification, in.HistoricalContext, sources)},
		}
	}
	return NewBaseWorker(name, sessionID, promptFn, d.Gen, d.Gov, d.Logger)
}

// NewAnalysts builds the four independent analysts for a session.
func NewAnalysts(sessionID string, d Deps) []*BaseWorker {
	return []*BaseWorker{
		NewSkeptic(sessionID, d),
		NewCustomer(sessionID, d),
		NewMarket(sessionID, d),
		NewBuilder(sessionID, d),
	}
}

// NewAdvocate builds the author-side defender for the rebuttal phase. It
// reuses the builder persona arguing the document's strongest case.
func NewAdvocate(sessionID string, d Deps) *BaseWorker {
	promptFn := func(in Inputs) []llm.Message {
		return []llm.Message{
			{Role: llm.RoleSystem, Content: "You are the document author's strongest advocate in an adversarial review. " + prompts.ClaimInstructions},
			{Role: llm.RoleUser, Content: prompts.Rebuttal(in.Document, in.Analyses)},
		}
	}
	return NewBaseWorker("advocate", sessionID, promptFn, d.Gen, d.Gov, d.Logger)
}

// NewCrossExaminer builds the cross-examination worker for a session. The
// advocate's defense is passed through Inputs.Analyses under the "advocate"
// key; the remaining entries are the original challenges.
func NewCrossExaminer(sessionID string, d Deps) *BaseWorker {
	promptFn := func(in Inputs) []llm.Message {
		defense := in.Analyses["advocate"]
		attacks := make(map[string]string, len(in.Analyses))
		for name, text := range in.Analyses {
			if name != "advocate" {
				attacks[name] = text
			}
		}
		return []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.SystemCrossExaminer},
			{Role: llm.RoleUser, Content: prompts.CrossExam(in.Document, defense, attacks)},
		}
	}
	return NewBaseWorker(RoleCrossExaminer, sessionID, promptFn, d.Gen, d.Gov, d.Logger)
}
