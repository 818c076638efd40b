package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a single dependency request as it appears in a manifest,
// e.g. "lodash@^4.0.0" or "@scope/pkg@1.2.3". The literal request
// string is the pattern's identity: two equal strings anywhere in the
// graph are the same pattern and resolve to one answer.
type Pattern struct {
	Name  string
	Range string
	// HasRange is false for bare names like "lodash"; the upgrade
	// flow fills in the currently wanted pattern for those.
	HasRange bool
}

type MalformedPatternError struct {
	Input  string
	Reason string
}

func (e *MalformedPatternError) Error() string {
	return fmt.Sprintf("malformed pattern %q: %s", e.Input, e.Reason)
}

var nameRe = regexp.MustCompile(`^(@[a-z0-9][a-z0-9-_.]*/)?[a-z0-9][a-z0-9-_.]*$`)

// Parse splits a request string on the last "@" that is not the
// leading scope separator.
func Parse(s string) (Pattern, error) {
	if s == "" {
		return Pattern{}, &MalformedPatternError{Input: s, Reason: "empty pattern"}
	}

	name := s
	rng := ""
	hasRange := false

	searchFrom := 0
	if strings.HasPrefix(s, "@") {
		slash := strings.Index(s, "/")
		if slash < 0 {
			return Pattern{}, &MalformedPatternError{Input: s, Reason: "scoped name without '/'"}
		}
		searchFrom = slash
	}
	if at := strings.LastIndex(s[searchFrom:], "@"); at > 0 {
		at += searchFrom
		name = s[:at]
		rng = s[at+1:]
		hasRange = true
	}

	if name == "" {
		return Pattern{}, &MalformedPatternError{Input: s, Reason: "empty name"}
	}
	if !nameRe.MatchString(name) {
		return Pattern{}, &MalformedPatternError{Input: s, Reason: fmt.Sprintf("invalid package name %q", name)}
	}

	return Pattern{Name: name, Range: rng, HasRange: hasRange}, nil
}

// MustParse panics on a malformed pattern. Intended for tests and
// constants.
func MustParse(s string) Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string {
	if !p.HasRange {
		return p.Name
	}
	return p.Name + "@" + p.Range
}

// Key returns the canonical cache/lockfile key for the pattern. A
// bare name is keyed with the wildcard range so that "lodash" and
// "lodash@*" resolve to one answer.
func (p Pattern) Key() string {
	if !p.HasRange || p.Range == "" {
		return p.Name + "@*"
	}
	return p.Name + "@" + p.Range
}
