package npmregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-pkgdep/pkg/registry"
)

const packumentBody = `{
	"name": "brace-expansion",
	"dist-tags": {"latest": "1.1.11"},
	"versions": {
		"1.0.0": {
			"name": "brace-expansion",
			"version": "1.0.0",
			"dist": {"tarball": "https://example.test/brace-expansion-1.0.0.tgz", "integrity": "sha512-one"}
		},
		"1.1.11": {
			"name": "brace-expansion",
			"version": "1.1.11",
			"dependencies": {"balanced-match": "^1.0.0", "concat-map": "0.0.1"},
			"dist": {"tarball": "TARBALL_URL", "integrity": "sha512-two"}
		},
		"not-a-version": {
			"name": "brace-expansion",
			"version": "not-a-version"
		}
	}
}`

func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/brace-expansion", func(w http.ResponseWriter, _ *http.Request) {
		hits++
		body := strings.ReplaceAll(packumentBody, "TARBALL_URL", srv.URL+"/tarball.tgz")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/tarball.tgz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tarball-bytes"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func Test_FetchPackument(t *testing.T) {
	srv, hits := newTestServer(t)
	cl := New(WithBaseURL(srv.URL))

	p, err := cl.FetchPackument(context.Background(), "brace-expansion")
	require.NoError(t, err)
	require.Equal(t, "1.1.11", p.Latest)
	// the unparsable historic version is skipped
	require.Len(t, p.Versions, 2)
	require.Equal(t, "1.0.0", p.Versions[0].Original())
	require.Equal(t, "1.1.11", p.Versions[1].Original())

	m, ok := p.Manifest("1.1.11")
	require.True(t, ok)
	require.Equal(t, map[string]string{"balanced-match": "^1.0.0", "concat-map": "0.0.1"}, m.Requires)
	require.Equal(t, "sha512-two", m.Dist.Integrity)

	// memoized: a second fetch does not hit the registry again
	_, err = cl.FetchPackument(context.Background(), "brace-expansion")
	require.NoError(t, err)
	require.Equal(t, 1, *hits)
}

func Test_FetchArtifact(t *testing.T) {
	srv, _ := newTestServer(t)
	cl := New(WithBaseURL(srv.URL))

	data, err := cl.FetchArtifact(context.Background(), "brace-expansion", "1.1.11")
	require.NoError(t, err)
	require.Equal(t, "tarball-bytes", string(data))

	_, err = cl.FetchArtifact(context.Background(), "brace-expansion", "9.9.9")
	var ferr *registry.FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, "brace-expansion", ferr.Name)
}

func Test_FetchPackument_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	cl := New(WithBaseURL(srv.URL))

	_, err := cl.FetchPackument(context.Background(), "no-such-package")
	var ferr *registry.FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, http.StatusNotFound, ferr.StatusCode)
}
