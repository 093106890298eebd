// Package prompts holds the role prompt templates and formatting helpers.
package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// ClaimInstructions is appended to every analyst prompt so responses carry a
// machine-readable claims array alongside the prose analysis.
const ClaimInstructions = `Respond with a single JSON object. Include a "claims" array where each entry has:
  "text": the specific claim you are making,
  "type": one of "verified", "assumption", "needs_validation",
  "sources": optional array of integer indices into the provided source list.
Label a claim "verified" only when a provided source directly supports it.`

// SystemSkeptic is the adversarial analyst persona.
const SystemSkeptic = `You are a ruthless startup skeptic reviewing a business document. Find the weakest assumptions, the failure modes the author is avoiding, and the reasons this fails. Be specific and evidence-driven, not generically negative. ` + ClaimInstructions

// SystemCustomer is the target-customer persona.
const SystemCustomer = `You are the document's target customer. React honestly: would you pay for this, what would stop you, what alternative do you use today? Ground every reaction in a concrete situation. ` + ClaimInstructions

// SystemMarket is the market analyst persona.
const SystemMarket = `You are a market analyst. Assess market size, timing, competition, and distribution for the proposal in the document. Distinguish what is known from what is assumed. ` + ClaimInstructions

// SystemBuilder is the execution-feasibility persona.
const SystemBuilder = `You are a senior builder assessing execution feasibility: what is hard to build, what the team is underestimating, and what the realistic path to a first version looks like. ` + ClaimInstructions

// SystemJudge presides over the review.
const SystemJudge = `You are the presiding judge of an adversarial document review. You are rigorous, fair, and decisive. Respond with a single JSON object in the exact shape requested.`

// SystemCrossExaminer probes defenses for evasion.
const SystemCrossExaminer = `You are a cross-examiner. Given an analyst's challenge and the author-side defense, determine whether the defense actually answers the challenge or evades it. Quote the evasion when you find one. Respond with a single JSON object containing "exchanges": an array of {"challenge", "defense_quality", "follow_up"} entries, and a "claims" array as specified. ` + ClaimInstructions

// Analysis formats the independent-analysis user prompt.
func Analysis(document, clarification, historical string, sources string) string {
	var b strings.Builder
	b.WriteString("Document under review:\n\n")
	b.WriteString(document)
	if clarification != "" {
		b.WriteString("\n\nJudge's framing of the core claim and review focus:\n")
		b.WriteString(clarification)
	}
	if historical != "" {
		b.WriteString("\n\n")
		b.WriteString(historical)
	}
	if sources != "" {
		b.WriteString("\n\nGrounded sources (reference by index in claim sources):\n")
		b.WriteString(sources)
	}
	b.WriteString("\n\nDeliver your analysis now.")
	return b.String()
}

// Rebuttal formats the author-side defense prompt from the attack round.
func Rebuttal(document string, analyses map[string]string) string {
	var b strings.Builder
	b.WriteString("Document under review:\n\n")
	b.WriteString(document)
	b.WriteString("\n\nThe following challenges were raised against it:\n")
	writeAnalyses(&b, analyses)
	b.WriteString("\nRespond as the document's strongest advocate. Concede what is true, rebut what is wrong, and say what evidence would settle each open point.")
	return b.String()
}

// CrossExam formats the cross-examination prompt over attacks and defense.
func CrossExam(document, defense string, analyses map[string]string) string {
	var b strings.Builder
	b.WriteString("Document under review:\n\n")
	b.WriteString(document)
	b.WriteString("\n\nChallenges raised:\n")
	writeAnalyses(&b, analyses)
	b.WriteString("\nDefense offered:\n")
	b.WriteString(defense)
	b.WriteString("\n\nCross-examine the defense now.")
	return b.String()
}

// Clarify formats the judge's opening-clarification prompt.
func Clarify(document string) string {
	return fmt.Sprintf(`Read the following document and respond with a JSON object containing:
  "core_claim": the single central claim the document makes,
  "review_focus": array of the 2-4 questions this review must answer,
  "ambiguities": array of things the document leaves unclear.

Document:

%s`, document)
}

// QualityGate formats the judge's phase-quality assessment prompt.
func QualityGate(phase string, analyses map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Assess the quality of the %s phase output below. Respond with a JSON object containing:
  "pass": boolean, whether the output is specific and evidence-driven enough to build on,
  "issues": array of concrete quality problems found.

Output:
`, phase)
	writeAnalyses(&b, analyses)
	return b.String()
}

// Verdict formats the final-verdict prompt over the full review record.
func Verdict(document string, record string, evidence string) string {
	var b strings.Builder
	b.WriteString("Document under review:\n\n")
	b.WriteString(document)
	b.WriteString("\n\nFull review record:\n")
	b.WriteString(record)
	if evidence != "" {
		b.WriteString("\n\nEvidence ledger:\n")
		b.WriteString(evidence)
	}
	b.WriteString(`

Deliver the final verdict as a JSON object with exactly these fields:
  "decision": one of "Proceed", "Pivot", "NeedsMoreData", "Kill",
  "confidence": number in [0,1],
  "reasoning": the decisive reasoning behind the decision,
  "scorecard": {"overall_score", "market_score", "customer_score", "feasibility_score", "differentiation_score"} each an integer 0-100,
  "kill_shots": array (max 5) of {"title", "description", "severity": one of "critical"|"high"|"medium", "agent"},
  "test_plan": array of {"day": integer 1-7, "task", "success_criteria"},
  "assumptions": array of the load-bearing assumptions identified,
  "recommendations": array of concrete next actions,
  "investor_readiness": {"score": integer 0-100, "verdict": one of "NotReady"|"Warm"|"InvestorReady", "reasons": array of strings},
  "pivot_ideas": array of strings (max 3, only when decision is "Pivot").`)
	return b.String()
}

func writeAnalyses(b *strings.Builder, analyses map[string]string) {
	names := make([]string, 0, len(analyses))
	for name := range analyses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, "\n[%s]\n%s\n", name, analyses[name])
	}
}

// FormatSources renders the grounded-source lookup as an indexed list.
func FormatSources(titles []string) string {
	var b strings.Builder
	for i, t := range titles {
		fmt.Fprintf(&b, "[%d] %s\n", i, t)
	}
	return b.String()
}
