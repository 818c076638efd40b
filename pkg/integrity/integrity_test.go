package integrity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Compute(t *testing.T) {
	digest := Compute([]byte("tarball-bytes"))
	require.True(t, strings.HasPrefix(digest, "sha512-"))
	require.Equal(t, digest, Compute([]byte("tarball-bytes")))
	require.NotEqual(t, digest, Compute([]byte("other-bytes")))
}

func Test_Verify(t *testing.T) {
	data := []byte("tarball-bytes")
	good := Compute(data)

	type testcase struct {
		declared       string
		locked         string
		versionChanged bool
		wantField      string
	}

	testcases := map[string]testcase{
		"all matching": {
			declared: good, locked: good,
		},
		"no pins at all": {},
		"manifest mismatch is fatal": {
			declared: "sha512-bogus", wantField: "manifest",
		},
		"manifest mismatch is fatal even when version changed": {
			declared: "sha512-bogus", versionChanged: true, wantField: "manifest",
		},
		"lockfile mismatch is fatal for unchanged version": {
			declared: good, locked: "sha512-stale", wantField: "lockfile",
		},
		"lockfile mismatch tolerated after intended version change": {
			declared: good, locked: "sha512-stale", versionChanged: true,
		},
	}

	for tcName, tc := range testcases {
		t.Run(tcName, func(t *testing.T) {
			computed, err := Verify("lodash", "4.17.21", data, tc.declared, tc.locked, tc.versionChanged)
			if tc.wantField == "" {
				require.NoError(t, err)
				require.Equal(t, good, computed)
				return
			}
			var merr *MismatchError
			require.ErrorAs(t, err, &merr)
			require.Equal(t, tc.wantField, merr.Field)
			require.Equal(t, "lodash", merr.Name)
		})
	}
}
