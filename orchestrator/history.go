package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/tribunal/governor"
	"github.com/c360studio/tribunal/ranking"
)

// summaryLimit caps the document excerpt used for embedding queries and
// stored precedent summaries.
const summaryLimit = 500

// summarize truncates the document to the summary limit on a rune boundary,
// preferring to cut at the last sentence end past half the limit.
func summarize(document string) string {
	document = strings.TrimSpace(document)
	if utf8.RuneCountInString(document) <= summaryLimit {
		return document
	}

	runes := []rune(document)
	cut := summaryLimit
	for i := summaryLimit - 1; i >= summaryLimit/2; i-- {
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			cut = i + 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut]))
}

// historicalContext retrieves precedents for the document and formats them as
// a prompt context block. Every failure path degrades to an empty block so
// enrichment can never fail a session.
func (r *Runner) historicalContext(ctx context.Context, sessionID, document, domain string) (string, []float64) {
	if r.embedder == nil || r.engine == nil {
		return "", nil
	}

	summary := summarize(document)

	var vectors [][]float64
	err := r.gov.Invoke(ctx, governor.EmbeddingScope, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.Embed(ctx, []string{summary})
		return embedErr
	})
	if err != nil || len(vectors) == 0 {
		r.logger.Warn("Embedding failed, proceeding without historical context",
			"session_id", sessionID,
			"error", err)
		return "", nil
	}
	embedding := vectors[0]

	retrieval, err := r.engine.RetrieveSimilar(ctx, embedding, r.historyN, ranking.Options{
		Domain: domain,
		Text:   summary,
	})
	if err != nil {
		r.logger.Warn("Precedent retrieval failed, proceeding without historical context",
			"session_id", sessionID,
			"error", err)
		return "", embedding
	}
	if len(retrieval.Precedents) == 0 {
		return "", embedding
	}

	return formatPrecedents(retrieval.Precedents), embedding
}

// formatPrecedents renders retrieved precedents as a context block analysts
// can cite.
func formatPrecedents(precedents []ranking.Precedent) string {
	var b strings.Builder
	b.WriteString("Outcomes of similar past reviews (for calibration, not as binding precedent):\n")
	for i, p := range precedents {
		fmt.Fprintf(&b, "\n%d. [%s, confidence %.2f] %s\n", i+1, p.Decision, p.Confidence, p.Summary)
		for _, ks := range p.KillShots {
			fmt.Fprintf(&b, "   - fatal flaw (%s): %s\n", ks.Severity, ks.Description)
		}
	}
	return b.String()
}
