package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/hf-pick/internal/validate"
)

const (
	DefaultBaseURL = "https://huggingface.co"
	// DefaultListLimit bounds the bulk listing used for approximate matching.
	DefaultListLimit = 5000
	// pageLimit is the largest page requested from the listing endpoint.
	pageLimit = 1000
)

//nolint:gochecknoglobals // default values are overwritten by WithHTTPClient.
var (
	defaultTimeout = 30 * time.Second
)

// Registry is the query surface the rest of the program depends on.
type Registry interface {
	// Search lists models whose id contains query.
	Search(ctx context.Context, query string, limit int) ([]ModelInfo, error)
	// List returns up to limit models without filtering.
	List(ctx context.Context, limit int) ([]ModelInfo, error)
	// ModelInfo fetches the detail for one model, including its files.
	ModelInfo(ctx context.Context, id string) (ModelInfo, error)
}

// Client is the HTTP implementation of Registry.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	token      string
}

// ClientOption mutates Client configuration.
type ClientOption func(*Client)

// WithBaseURL configures the registry base URL for mirrors or tests.
func WithBaseURL(base string) ClientOption { //nolint:ireturn
	return func(c *Client) {
		if base == "" {
			return
		}
		if u, err := url.Parse(base); err == nil {
			c.baseURL = u
		}
	}
}

// WithToken sends the token as a bearer credential, needed for gated or private models.
func WithToken(token string) ClientOption { //nolint:ireturn
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption { //nolint:ireturn
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a new Client with defaults.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == nil {
		u, err := url.Parse(DefaultBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid default baseURL: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

// Search implements Registry.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]ModelInfo, error) {
	q := url.Values{}
	q.Set("search", query)
	return c.listModels(ctx, q, limit)
}

// List implements Registry.
func (c *Client) List(ctx context.Context, limit int) ([]ModelInfo, error) {
	return c.listModels(ctx, url.Values{}, limit)
}

// listModels follows the Link: rel="next" cursor until limit models are collected.
// A limit <= 0 collects every page.
func (c *Client) listModels(ctx context.Context, q url.Values, limit int) ([]ModelInfo, error) {
	pageSize := pageLimit
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}
	q.Set("limit", strconv.Itoa(pageSize))
	next := c.buildURL("/api/models", q)

	var out []ModelInfo
	for next != "" {
		req, err := c.newRequest(ctx, http.MethodGet, next)
		if err != nil {
			return nil, err
		}
		logrus.Debugf("registry: GET %s", next)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		var page []ModelInfo
		err = func() error {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return handleHTTPError(resp)
			}
			return decodeJSON(resp.Body, &page)
		}()
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		next = nextLink(resp.Header.Get("Link"))
	}
	return out, nil
}

// ModelInfo implements Registry.
func (c *Client) ModelInfo(ctx context.Context, id string) (ModelInfo, error) {
	var info ModelInfo
	if err := validate.Var(id, "repo_id"); err != nil {
		return info, fmt.Errorf("%w: invalid model id %q", ErrValidation, id)
	}
	// repo_id admits no characters that need escaping.
	full := c.buildURL("/api/models/"+id, nil)
	req, err := c.newRequest(ctx, http.MethodGet, full)
	if err != nil {
		return info, err
	}
	logrus.Debugf("registry: GET %s", full)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return info, fmt.Errorf("model info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return info, handleHTTPError(resp)
	}
	if err := decodeJSON(resp.Body, &info); err != nil {
		return info, fmt.Errorf("decode model info: %w", err)
	}
	return info, nil
}

// --- Helpers ---

func defaultUserAgent() string {
	return fmt.Sprintf("hf-pick/%s (%s; %s)", BuildVersion, runtime.GOOS, runtime.GOARCH)
}

// joinURLPath joins two URL paths with exactly one slash boundary.
func joinURLPath(basePath, addPath string) string {
	switch {
	case basePath == "" || basePath == "/":
		return addPath
	case addPath == "":
		return basePath
	case hasTrailingSlash(basePath) && hasLeadingSlash(addPath):
		return basePath + addPath[1:]
	case !hasTrailingSlash(basePath) && !hasLeadingSlash(addPath):
		return basePath + "/" + addPath
	default:
		return basePath + addPath
	}
}

func hasTrailingSlash(p string) bool { return len(p) > 0 && p[len(p)-1] == '/' }
func hasLeadingSlash(p string) bool  { return len(p) > 0 && p[0] == '/' }

func (c *Client) buildURL(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = joinURLPath(u.Path, path)
	u.RawPath = ""
	u.RawQuery = q.Encode()
	return u.String()
}

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, p := range segs[1:] {
			if strings.ReplaceAll(strings.TrimSpace(p), " ", "") == `rel="next"` {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

func (c *Client) newRequest(ctx context.Context, method, fullURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func decodeJSON[T any](r io.Reader, out *T) error {
	dec := json.NewDecoder(r)
	return dec.Decode(out)
}
