package pattern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Parse(t *testing.T) {
	type testcase struct {
		input    string
		name     string
		rng      string
		hasRange bool
	}

	testcases := map[string]testcase{
		"caret range": {
			input: "lodash@^4.0.0", name: "lodash", rng: "^4.0.0", hasRange: true,
		},
		"exact version": {
			input: "concat-map@0.0.1", name: "concat-map", rng: "0.0.1", hasRange: true,
		},
		"scoped package": {
			input: "@scope/pkg@1.2.3", name: "@scope/pkg", rng: "1.2.3", hasRange: true,
		},
		"scoped package without range": {
			input: "@scope/pkg", name: "@scope/pkg", rng: "", hasRange: false,
		},
		"bare name": {
			input: "minimatch", name: "minimatch", rng: "", hasRange: false,
		},
		"wildcard range": {
			input: "minimatch@*", name: "minimatch", rng: "*", hasRange: true,
		},
	}

	for tcName, tc := range testcases {
		t.Run(tcName, func(t *testing.T) {
			p, err := Parse(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.name, p.Name)
			require.Equal(t, tc.rng, p.Range)
			require.Equal(t, tc.hasRange, p.HasRange)
		})
	}
}

func Test_Parse_Malformed(t *testing.T) {
	for _, input := range []string{
		"",
		"@",
		"@scope",
		"@scope@1.0.0",
		"@/pkg@1.0.0",
		".hidden@1.0.0",
		"UPPER@1.0.0",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			var perr *MalformedPatternError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, input, perr.Input)
		})
	}
}

func Test_Pattern_Key(t *testing.T) {
	require.Equal(t, "lodash@*", MustParse("lodash").Key())
	require.Equal(t, "lodash@^4.0.0", MustParse("lodash@^4.0.0").Key())
	require.Equal(t, "@scope/pkg@~1.2.0", MustParse("@scope/pkg@~1.2.0").Key())
	require.Equal(t, "lodash@^4.0.0", MustParse("lodash@^4.0.0").String())
	require.Equal(t, "lodash", MustParse("lodash").String())
}
