package services

import (
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// unsafeTerms are matched as lowercase substrings of the query.
var unsafeTerms = []string{
	"how to make a bomb",
	"harm",
	"self-harm",
	"suicide",
	"kill",
	"explosive",
}

// ClassifyQuery screens a query before retrieval. It is a keyword
// heuristic and errs towards refusing.
func ClassifyQuery(query string) domain.SafetyLabel {
	q := strings.ToLower(query)
	for _, term := range unsafeTerms {
		if strings.Contains(q, term) {
			return domain.SafetyUnsafe
		}
	}
	return domain.SafetySafe
}
