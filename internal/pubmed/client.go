package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the E-utilities base URL.
	BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit is 3 requests per second without an API key per NCBI policy.
	RateLimit = 3.0

	// RateLimitWithKey is 10 requests per second with an API key.
	RateLimitWithKey = 10.0

	// MaxResults is the most ids esearch returns for one query.
	MaxResults = 10000

	// DefaultBatchSize is the number of ids per efetch request.
	DefaultBatchSize = 300

	// DefaultTool identifies this client to NCBI.
	DefaultTool = "rx"

	// DefaultTerm selects publications indexed as retracted.
	DefaultTerm = `"Retracted Publication"[Publication Type]`
)

// Client is a rate-limited HTTP client for esearch and efetch.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *gocache.Cache
	apiKey     string
	email      string
	tool       string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the NCBI API key, which also raises the rate limit.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithEmail sets the contact email NCBI asks clients to send.
func WithEmail(email string) ClientOption {
	return func(c *Client) {
		c.email = email
	}
}

// WithTool sets the tool name sent with each request.
func WithTool(tool string) ClientOption {
	return func(c *Client) {
		c.tool = tool
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCache keeps successful responses in memory for ttl, so repeated
// windows and batches within one session are not fetched twice.
func WithCache(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = gocache.New(ttl, 2*ttl)
	}
}

// NewClient creates a new E-utilities client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    BaseURL,
		tool:       DefaultTool,
	}

	// Check for credentials in environment
	if key := os.Getenv("NCBI_API_KEY"); key != "" {
		c.apiKey = key
	}
	if email := os.Getenv("NCBI_EMAIL"); email != "" {
		c.email = email
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		limit := RateLimit
		if c.apiKey != "" {
			limit = RateLimitWithKey
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), 1)
	}

	return c
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, endpoint string) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: msg}
	}
	return nil
}

// get performs one rate-limited GET against an E-utilities endpoint.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("db", "pubmed")
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}
	// The key is left out of the cache key.
	cacheKey := endpoint + "?" + params.Encode()
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v.([]byte), nil
		}
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + "/" + endpoint + ".fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, endpoint); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s body: %v", ErrNetworkError, endpoint, err)
	}

	if c.cache != nil {
		c.cache.SetDefault(cacheKey, body)
	}
	return body, nil
}

// Search runs one esearch for term restricted to publication years
// [minYear, maxYear]. A zero year leaves that end open.
func (c *Client) Search(ctx context.Context, term string, minYear, maxYear int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(MaxResults))
	if minYear > 0 || maxYear > 0 {
		params.Set("datetype", "pdat")
	}
	if minYear > 0 {
		params.Set("mindate", strconv.Itoa(minYear))
	}
	if maxYear > 0 {
		params.Set("maxdate", strconv.Itoa(maxYear))
	}

	body, err := c.get(ctx, "esearch", params)
	if err != nil {
		return nil, err
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing esearch response: %v", ErrInvalidResponse, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, resp.Error)
	}

	count := 0
	if resp.Result.Count != "" {
		count, err = strconv.Atoi(resp.Result.Count)
		if err != nil {
			return nil, fmt.Errorf("%w: esearch count %q", ErrInvalidResponse, resp.Result.Count)
		}
	}

	ids := resp.Result.IDList
	if ids == nil {
		ids = []string{}
	}
	return &SearchResult{Term: term, MinYear: minYear, MaxYear: maxYear, Count: count, IDs: ids}, nil
}

// SearchAll walks [startYear, endYear] in windows of interval years so
// that no single query exceeds the esearch cap. Ids are de-duplicated in
// first-seen order.
func (c *Client) SearchAll(ctx context.Context, term string, startYear, endYear, interval int) (*SearchAllResult, error) {
	if interval <= 0 {
		interval = 1
	}
	if endYear < startYear {
		return nil, fmt.Errorf("end year %d is before start year %d", endYear, startYear)
	}

	out := &SearchAllResult{Term: term, IDs: []string{}}
	seen := make(map[string]bool)

	for year := startYear; year <= endYear; year += interval {
		windowEnd := min(year+interval-1, endYear)

		res, err := c.Search(ctx, term, year, windowEnd)
		if err != nil {
			return nil, fmt.Errorf("searching %d-%d: %w", year, windowEnd, err)
		}

		out.TotalCount += res.Count
		out.Windows = append(out.Windows, Window{MinYear: year, MaxYear: windowEnd, Count: res.Count, IDs: len(res.IDs)})
		for _, id := range res.IDs {
			if !seen[id] {
				seen[id] = true
				out.IDs = append(out.IDs, id)
			}
		}
	}

	return out, nil
}

// Fetch returns the efetch XML document for a set of ids.
func (c *Client) Fetch(ctx context.Context, ids []string) ([]byte, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("fetch: no ids given")
	}
	params := url.Values{}
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")
	return c.get(ctx, "efetch", params)
}

// FetchAll fetches ids in batches and hands each batch's XML to fn in
// order. It stops at the first error from the API or from fn.
func (c *Client) FetchAll(ctx context.Context, ids []string, batchSize int, fn func(batch int, ids []string, xml []byte) error) error {
	for i, batch := range Batch(ids, batchSize) {
		data, err := c.Fetch(ctx, batch)
		if err != nil {
			return fmt.Errorf("fetching batch %d: %w", i+1, err)
		}
		if err := fn(i, batch, data); err != nil {
			return err
		}
	}
	return nil
}

// Batch cuts ids into consecutive slices of at most size ids.
func Batch(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
