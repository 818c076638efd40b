package npmregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"

	"github.com/acronis/go-pkgdep/pkg/manifest"
	"github.com/acronis/go-pkgdep/pkg/registry"
)

const DefaultBaseURL = "https://registry.npmjs.org"

type Option func(*client)

type client struct {
	baseURL string
	httpCl  *http.Client

	mu         sync.Mutex
	packuments map[string]*registry.Packument
}

func New(options ...Option) registry.Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpCl:     &http.Client{Timeout: 30 * time.Second},
		packuments: map[string]*registry.Packument{},
	}
	for _, o := range options {
		o(c)
	}
	return c
}

func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithHTTPClient(httpCl *http.Client) Option {
	return func(c *client) {
		c.httpCl = httpCl
	}
}

func (c *client) FetchPackument(ctx context.Context, name string) (*registry.Packument, error) {
	c.mu.Lock()
	if p, ok := c.packuments[name]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	// Scoped names keep the leading "@" but escape the separator.
	escaped := strings.Replace(url.PathEscape(name), "%40", "@", 1)
	reqURL := c.baseURL + "/" + escaped

	body, err := c.get(ctx, name, reqURL)
	if err != nil {
		return nil, err
	}

	p, err := decodePackument(name, body)
	if err != nil {
		return nil, fmt.Errorf("decode packument for %s: %w", name, err)
	}

	slog.Debug("Fetched packument",
		slog.String("package", name),
		slog.Int("versions", len(p.Versions)),
	)

	c.mu.Lock()
	c.packuments[name] = p
	c.mu.Unlock()
	return p, nil
}

func (c *client) FetchArtifact(ctx context.Context, name string, version string) ([]byte, error) {
	p, err := c.FetchPackument(ctx, name)
	if err != nil {
		return nil, err
	}
	m, ok := p.Manifest(version)
	if !ok {
		return nil, &registry.FetchError{
			Name: name,
			URL:  c.baseURL,
			Err:  fmt.Errorf("version %s is not published", version),
		}
	}
	if m.Dist.Tarball == "" {
		return nil, &registry.FetchError{
			Name: name,
			URL:  c.baseURL,
			Err:  fmt.Errorf("version %s has no tarball location", version),
		}
	}
	return c.get(ctx, name, m.Dist.Tarball)
}

func (c *client) get(ctx context.Context, name string, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &registry.FetchError{Name: name, URL: reqURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpCl.Do(req)
	if err != nil {
		return nil, &registry.FetchError{Name: name, URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &registry.FetchError{Name: name, URL: reqURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &registry.FetchError{Name: name, URL: reqURL, Err: err}
	}
	return body, nil
}

func decodePackument(name string, body []byte) (*registry.Packument, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	root := gjson.ParseBytes(body)

	p := &registry.Packument{
		Name:      name,
		Latest:    root.Get("dist-tags.latest").String(),
		Manifests: map[string]*manifest.Manifest{},
	}

	var decodeErr error
	root.Get("versions").ForEach(func(key, value gjson.Result) bool {
		ver, err := semver.NewVersion(key.String())
		if err != nil {
			// registries carry the odd unparsable historic version;
			// skip it rather than fail the whole packument
			slog.Debug("Skipping unparsable version",
				slog.String("package", name),
				slog.String("version", key.String()),
			)
			return true
		}

		raw := map[string]any{}
		if err := json.Unmarshal([]byte(value.Raw), &raw); err != nil {
			decodeErr = fmt.Errorf("version %s: %w", key.String(), err)
			return false
		}
		m, err := manifest.Decode(raw)
		if err != nil {
			decodeErr = fmt.Errorf("version %s: %w", key.String(), err)
			return false
		}

		p.Versions = append(p.Versions, ver)
		p.Manifests[ver.Original()] = m
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if len(p.Versions) == 0 {
		return nil, fmt.Errorf("no published versions")
	}

	sort.Sort(semver.Collection(p.Versions))
	return p, nil
}
