package resolver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// UnsatisfiableRangeError reports a range no published version can
// satisfy, with the chain of requesters that led to it.
type UnsatisfiableRangeError struct {
	Name       string
	Range      string
	Requesters []string
}

func (e *UnsatisfiableRangeError) Error() string {
	msg := fmt.Sprintf("no published version of %s satisfies %q", e.Name, e.Range)
	if len(e.Requesters) > 0 {
		msg += fmt.Sprintf(" (required by %s)", strings.Join(e.Requesters, ", "))
	}
	return msg
}

// normalizeRange maps the request forms that mean "anything" onto the
// wildcard constraint.
func normalizeRange(rng string) string {
	if rng == "" || rng == "latest" {
		return "*"
	}
	return rng
}

func constraintFor(name, rng string) (*semver.Constraints, error) {
	c, err := semver.NewConstraint(normalizeRange(rng))
	if err != nil {
		return nil, fmt.Errorf("invalid range %q for %s: %w", rng, name, err)
	}
	return c, nil
}

// maxSatisfying returns the highest version in versions (ascending)
// admitted by the constraint, or nil.
func maxSatisfying(versions []*semver.Version, c *semver.Constraints) *semver.Version {
	for i := len(versions) - 1; i >= 0; i-- {
		if c.Check(versions[i]) {
			return versions[i]
		}
	}
	return nil
}

// pickVersions chooses the smallest set of concrete versions covering
// every range. The canonical version is the one satisfying the
// largest subset of ranges, ties broken by highest version; every
// range the canonical version cannot satisfy falls back to its own
// max-satisfying version (a second copy scoped to that requester).
//
// versions must be sorted ascending. The returned map assigns one
// version per range; ranges with no satisfying version at all are
// reported in unsat.
func pickVersions(versions []*semver.Version, ranges []string, name string) (perRange map[string]*semver.Version, unsat []string, err error) {
	constraints := make(map[string]*semver.Constraints, len(ranges))
	for _, rng := range ranges {
		if _, ok := constraints[rng]; ok {
			continue
		}
		c, cerr := constraintFor(name, rng)
		if cerr != nil {
			return nil, nil, cerr
		}
		constraints[rng] = c
	}

	var canonical *semver.Version
	best := 0
	// ascending scan with >= keeps the highest version among
	// equal-size satisfying subsets
	for _, v := range versions {
		count := 0
		for _, c := range constraints {
			if c.Check(v) {
				count++
			}
		}
		if count > 0 && count >= best {
			best = count
			canonical = v
		}
	}

	perRange = make(map[string]*semver.Version, len(constraints))
	for rng, c := range constraints {
		if canonical != nil && c.Check(canonical) {
			perRange[rng] = canonical
			continue
		}
		if v := maxSatisfying(versions, c); v != nil {
			perRange[rng] = v
			continue
		}
		unsat = append(unsat, rng)
	}
	return perRange, unsat, nil
}
