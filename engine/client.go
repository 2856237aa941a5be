package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zond/godip"

	"github.com/zond/dipcoord/errs"
	"github.com/zond/dipcoord/metrics"
)

const defaultTimeout = 30 * time.Second

// Client performs Start and Resolve calls against an adjudication service.
// Every failure mode surfaces as a single errs.CodeAdjudication error;
// retry policy belongs to the caller.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// NewClient creates a client for the adjudication service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start asks the adjudicator for the starting phase of a game on the given
// variant with the given nations.
func (c *Client) Start(ctx context.Context, variant string, nations godip.Nations) (*Result, error) {
	return c.post(ctx, variant, "Start", startRequest{
		VariantID: variant,
		Nations:   nations,
	})
}

// Resolve submits a phase snapshot and its confirmed orders and returns the
// adjudicated outcome. Orders must contain a nation only if that nation
// submitted at least one order; the adjudicator infers missing orders.
func (c *Client) Resolve(ctx context.Context, variant string, phase Phase, orders Orders) (*Result, error) {
	if orders == nil {
		orders = Orders{}
	}
	return c.post(ctx, variant, "Resolve", resolveRequest{
		Phase:  phase,
		Orders: orders,
	})
}

func (c *Client) post(ctx context.Context, variant, operation string, payload interface{}) (*Result, error) {
	start := time.Now()
	result, err := c.doPost(ctx, variant, operation, payload)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.EngineCallDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	return result, err
}

func (c *Client) doPost(ctx context.Context, variant, operation string, payload interface{}) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.CodeAdjudication, "encoding adjudication request", err)
	}

	reqURL := fmt.Sprintf("%s/Variant/%s/%s", c.baseURL, url.PathEscape(variant), operation)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.CodeAdjudication, "building adjudication request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.CodeAdjudication, fmt.Sprintf("calling adjudicator %s", operation), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errs.Newf(errs.CodeAdjudication, "adjudicator %s returned %d: %s", operation, resp.StatusCode, snippet)
	}

	result := &Result{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, errs.Wrap(errs.CodeAdjudication, "decoding adjudication response", err)
	}
	if result.Phase.Type == "" || result.Phase.Season == "" {
		return nil, errs.Newf(errs.CodeAdjudication, "malformed adjudication response: missing phase in %s answer", operation)
	}
	for i := range result.Phase.Resolutions {
		result.Phase.Resolutions[i].Result = ParseStatus(string(result.Phase.Resolutions[i].Result))
	}
	return result, nil
}
