// Package heuristics holds the static, I/O free domain checks.
package heuristics

import (
	"strings"
	"unicode"

	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/emailaddr"
	"go.uber.org/zap"
)

// Lists are the curated inputs of the static checks
type Lists struct {
	DisposableDomains []string
	SuspiciousTLDs    []string
	Brands            []string
}

// Evaluator runs the static checks against a domain
type Evaluator struct {
	disposable *DomainSet
	tlds       []string
	brands     []string
	logger     *zap.Logger
}

// NewEvaluator creates an evaluator over the given lists
func NewEvaluator(lists Lists, logger *zap.Logger) *Evaluator {
	tlds := make([]string, 0, len(lists.SuspiciousTLDs))
	for _, tld := range lists.SuspiciousTLDs {
		tld = strings.ToLower(strings.TrimSpace(tld))
		if tld == "" {
			continue
		}
		if !strings.HasPrefix(tld, ".") {
			tld = "." + tld
		}
		tlds = append(tlds, tld)
	}

	brands := make([]string, 0, len(lists.Brands))
	for _, brand := range lists.Brands {
		if brand = strings.ToLower(strings.TrimSpace(brand)); brand != "" {
			brands = append(brands, brand)
		}
	}

	return &Evaluator{
		disposable: NewDomainSet("disposable", lists.DisposableDomains, logger),
		tlds:       tlds,
		brands:     brands,
		logger:     logger,
	}
}

// Evaluate applies every static check to a normalized domain. The list
// checks match the ASCII form and the label checks run on the decoded
// registrable label.
func (e *Evaluator) Evaluate(domain string) core.HeuristicResult {
	if ascii, err := emailaddr.ToASCII(domain); err == nil {
		domain = ascii
	}
	label := emailaddr.SecondLevelLabel(domain)
	return core.HeuristicResult{
		Disposable:     e.disposable.Contains(domain),
		SuspiciousTLD:  e.suspiciousTLD(domain),
		TyposquatBrand: TyposquatTarget(label, e.brands),
		DenseLabel:     IsDenseLabel(label),
	}
}

func (e *Evaluator) suspiciousTLD(domain string) string {
	for _, tld := range e.tlds {
		if strings.HasSuffix(domain, tld) {
			return tld
		}
	}
	return ""
}

// IsDenseLabel flags labels with three or more digits, two or more hyphens,
// or at least four of the two combined
func IsDenseLabel(label string) bool {
	digits, hyphens := 0, 0
	for _, r := range label {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '-':
			hyphens++
		}
	}
	return digits >= 3 || hyphens >= 2 || digits+hyphens >= 4
}
