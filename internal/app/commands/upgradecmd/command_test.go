package upgradecmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_RewriteRange(t *testing.T) {
	type testcase struct {
		declared string
		latest   string
		opts     Options
		expected string
	}

	testcases := map[string]testcase{
		"caret flag moves to latest": {
			declared: "^1.2.0",
			latest:   "2.0.0",
			opts:     Options{Latest: true, Caret: true},
			expected: "^2.0.0",
		},
		"tilde flag overrides declared caret": {
			declared: "^1.2.0",
			latest:   "2.0.0",
			opts:     Options{Latest: true, Tilde: true},
			expected: "~2.0.0",
		},
		"exact flag pins": {
			declared: "^1.2.0",
			latest:   "2.0.0",
			opts:     Options{Latest: true, Exact: true},
			expected: "2.0.0",
		},
		"no flag preserves declared caret": {
			declared: "^1.2.0",
			latest:   "2.0.0",
			opts:     Options{Latest: true},
			expected: "^2.0.0",
		},
		"no flag preserves declared tilde": {
			declared: "~1.2.0",
			latest:   "2.0.0",
			opts:     Options{Latest: true},
			expected: "~2.0.0",
		},
		"exact declared stays exact": {
			declared: "1.2.0",
			latest:   "2.0.0",
			opts:     Options{Latest: true},
			expected: "2.0.0",
		},
		"complex range re-pins exactly": {
			declared: ">=1.0.0 <2.0.0",
			latest:   "2.0.0",
			opts:     Options{Latest: true},
			expected: "2.0.0",
		},
		"wildcard left alone": {
			declared: "*",
			latest:   "2.0.0",
			opts:     Options{Latest: true},
			expected: "*",
		},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.expected, rewriteRange(tc.declared, tc.latest, tc.opts))
		})
	}
}
