package review

import (
	"log/slog"
	"strings"
)

// DomainDetector tags a document with a domain by keyword matching against a
// fixed vocabulary. All detection is deterministic string matching; no LLM
// calls are made.
type DomainDetector struct {
	vocabulary map[string]string
	logger     *slog.Logger
}

// DefaultDomain is returned when no vocabulary entry matches.
const DefaultDomain = "general"

// defaultVocabulary maps lower-cased keywords to domain tags.
var defaultVocabulary = map[string]string{
	"saas":         "SaaS",
	"subscription": "SaaS",
	"marketplace":  "Marketplace",
	"two-sided":    "Marketplace",
	"fintech":      "FinTech",
	"payments":     "FinTech",
	"lending":      "FinTech",
	"healthcare":   "HealthTech",
	"patient":      "HealthTech",
	"clinical":     "HealthTech",
	"e-commerce":   "E-Commerce",
	"ecommerce":    "E-Commerce",
	"retail":       "E-Commerce",
	"enterprise":   "B2B",
	"b2b":          "B2B",
	"consumer":     "B2C",
	"b2c":          "B2C",
	"education":    "EdTech",
	"learning":     "EdTech",
	"logistics":    "Logistics",
	"delivery":     "Logistics",
	"developer":    "DevTools",
	"api":          "DevTools",
}

// DetectorOption configures a DomainDetector.
type DetectorOption func(*DomainDetector)

// WithVocabulary replaces the default keyword table.
func WithVocabulary(vocab map[string]string) DetectorOption {
	return func(d *DomainDetector) {
		d.vocabulary = vocab
	}
}

// WithDetectorLogger sets the logger.
func WithDetectorLogger(logger *slog.Logger) DetectorOption {
	return func(d *DomainDetector) {
		d.logger = logger
	}
}

// NewDomainDetector creates a detector with the default vocabulary.
func NewDomainDetector(opts ...DetectorOption) *DomainDetector {
	d := &DomainDetector{
		vocabulary: defaultVocabulary,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Detect returns the first domain whose keyword appears in the document, by
// descending keyword length so more specific terms win, or DefaultDomain.
func (d *DomainDetector) Detect(document string) string {
	low := strings.ToLower(document)

	best := ""
	bestLen := 0
	for keyword, domain := range d.vocabulary {
		if len(keyword) > bestLen && strings.Contains(low, keyword) {
			best = domain
			bestLen = len(keyword)
		}
	}

	if best == "" {
		return DefaultDomain
	}
	return best
}

// Resolve applies a caller-supplied override. The override always wins; a
// disagreement with the detected domain is logged, not enforced.
func (d *DomainDetector) Resolve(document, override string) string {
	detected := d.Detect(document)
	if override == "" {
		return detected
	}
	if override != detected {
		d.logger.Warn("Domain override disagrees with detection",
			"override", override,
			"detected", detected)
	}
	return override
}
