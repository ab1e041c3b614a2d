package fixtures

import (
	"regexp"
	"strings"
)

// Predicate matches documents on a single text field, either by substring or by regular expression.
type Predicate struct {
	Field   string
	Pattern string
	regex   *regexp.Regexp
}

func Contains(field, substr string) Predicate {
	return Predicate{Field: field, Pattern: substr}
}

func Matches(field, expr string) (Predicate, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Predicate{}, invalidArgument("bad expression %q: %v", expr, err)
	}
	return Predicate{Field: field, Pattern: expr, regex: re}, nil
}

func (p Predicate) IsRegexp() bool {
	return p.regex != nil
}

// Regexp returns an unanchored expression equivalent to the predicate.
func (p Predicate) Regexp() string {
	if p.regex != nil {
		return p.Pattern
	}
	return regexp.QuoteMeta(p.Pattern)
}

func (p Predicate) Match(doc Document) bool {
	v := doc.Field(p.Field)
	if p.regex != nil {
		return p.regex.MatchString(v)
	}
	return strings.Contains(v, p.Pattern)
}

func (p Predicate) String() string {
	return p.Field + " =~ /" + p.Regexp() + "/"
}
