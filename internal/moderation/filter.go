package moderation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/vesselapp/vessel/pkg/apperror"
)

// Violation names the field and the first banned term matched in it.
type Violation struct {
	Field string
	Term  string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s contains a prohibited term: %q", v.Field, v.Term)
}

func (v *Violation) Unwrap() error {
	return apperror.ErrBadRequest
}

// Filter screens user-authored text against a banned term list and strips
// markup before storage. Matching is case-insensitive, on word boundaries,
// after leet-speak normalization so "b4d" matches a "bad" entry.
type Filter struct {
	patterns []termPattern
	policy   *bluemonday.Policy
}

type termPattern struct {
	term string
	re   *regexp.Regexp
}

var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
)

func NewFilter(terms []string) *Filter {
	f := &Filter{policy: bluemonday.StrictPolicy()}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
		f.patterns = append(f.patterns, termPattern{term: term, re: re})
	}
	return f
}

// Check returns a Violation for the first banned term found in text, or nil.
func (f *Filter) Check(field, text string) error {
	normalized := leetReplacer.Replace(strings.ToLower(text))
	for _, p := range f.patterns {
		if p.re.MatchString(normalized) {
			return &Violation{Field: field, Term: p.term}
		}
	}
	return nil
}

// Sanitize strips all markup from user-authored text.
func (f *Filter) Sanitize(text string) string {
	return strings.TrimSpace(f.policy.Sanitize(text))
}
