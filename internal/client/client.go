// Package client implements the REST client for the trainer backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var userAgent = "Trainer/2.0"

const defaultTimeout = 15 * time.Second

// Outcome classifies a completed HTTP exchange. Transport-level failures
// never produce an Outcome; they surface as errors from Do.
type Outcome int

const (
	// OutcomeOK is any 2xx response.
	OutcomeOK Outcome = iota
	// OutcomeStale means the target no longer exists or the payload is no
	// longer processable (404/422). Retrying is pointless.
	OutcomeStale
	// OutcomeRetry is any other non-2xx status, worth another attempt later.
	OutcomeRetry
)

// Response is a completed exchange with the backend.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) Outcome() Outcome {
	switch {
	case r.OK():
		return OutcomeOK
	case r.StatusCode == http.StatusNotFound || r.StatusCode == http.StatusUnprocessableEntity:
		return OutcomeStale
	default:
		return OutcomeRetry
	}
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Client holds configuration for the REST client and provides methods that
// interact with the backend API.
type Client struct {
	BaseURL *url.URL

	userAgent string
	client    *http.Client
}

// NewClient returns a new REST API client. If a nil httpClient is provided,
// a default client with a request timeout is used. To use API methods which
// require authentication, provide an http.Client that will perform the
// authentication for you (such as that provided by the golang.org/x/oauth2
// library).
func NewClient(baseURL *url.URL, cc *http.Client) *Client {
	if cc == nil {
		cc = &http.Client{Timeout: defaultTimeout}
	}

	// Endpoint paths resolve relative to the base path, so it must be a
	// directory reference.
	if !strings.HasSuffix(baseURL.Path, "/") {
		b := *baseURL
		b.Path += "/"
		baseURL = &b
	}

	return &Client{BaseURL: baseURL, userAgent: userAgent, client: cc}
}

// NewRequest creates an HTTP Request for an endpoint path such as
// "/workouts/42", resolved under the client's base URL. If a non-nil body
// is provided it will be JSON encoded and included in the request.
func (c *Client) NewRequest(ctx context.Context, method, urlStr string, body interface{}) (*http.Request, error) {
	u, err := c.BaseURL.Parse(strings.TrimPrefix(urlStr, "/"))
	if err != nil {
		return nil, err
	}

	var buf io.ReadWriter
	if body != nil {
		buf = new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err = enc.Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), buf)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// Do sends a request and returns the completed exchange. A non-nil error
// means the request could not be sent or completed (the network-failure
// class); any response from the server, whatever its status, is returned
// without error so callers can classify it via Outcome.
func (c *Client) Do(req *http.Request) (*Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
