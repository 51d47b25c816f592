package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/mosaicrun/remotebrowser/log"
)

const (
	// requestTimeout bounds every vendor API request.
	requestTimeout = 20 * time.Second
	// retryInterval is the pause between retried requests.
	retryInterval = 500 * time.Millisecond
	// maxRetries caps attempts for a single logical request.
	maxRetries = 3

	// maxErrorBody limits how much of a vendor error body ends up in an
	// APIError.
	maxErrorBody = 512
)

// apiClient is a small JSON-over-HTTP client for a vendor session API.
// It retries transport errors, 5xx and 429 responses a bounded number of
// times with a fixed interval.
type apiClient struct {
	client  *http.Client
	baseURL string
	name    string
	headers map[string]string
	logger  *log.Logger

	retries       int
	retryInterval time.Duration
}

func newAPIClient(name, baseURL string, headers map[string]string, logger *log.Logger) *apiClient {
	return &apiClient{
		client:        &http.Client{Timeout: requestTimeout},
		baseURL:       baseURL,
		name:          name,
		headers:       headers,
		logger:        logger,
		retries:       maxRetries,
		retryInterval: retryInterval,
	}
}

// NewRequest builds a request against the vendor API. A non-nil data is
// serialized as a JSON body.
func (c *apiClient) NewRequest(ctx context.Context, method, path string, data any) (*http.Request, error) {
	var buf io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrap(err, "serializing request body")
		}
		buf = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request and decodes a 2xx JSON response into v (ignored when
// v is nil). Non-2xx responses become an *APIError.
func (c *apiClient) Do(req *http.Request, v any) error {
	if req.Body != nil && req.GetBody == nil {
		originalBody, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		if err = req.Body.Close(); err != nil {
			return err
		}

		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(originalBody)), nil
		}
		req.Body, _ = req.GetBody()
	}

	for i := 1; i <= c.retries; i++ {
		retry, err := c.do(req, v, i)

		if retry {
			select {
			case <-req.Context().Done():
				return req.Context().Err()
			case <-time.After(c.retryInterval):
			}
			if req.GetBody != nil {
				req.Body, _ = req.GetBody()
			}
			continue
		}

		return err
	}

	return nil
}

func (c *apiClient) do(req *http.Request, v any, attempt int) (retry bool, err error) {
	resp, err := c.client.Do(req)

	defer func() {
		if resp != nil {
			if cerr := resp.Body.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	if c.shouldRetry(resp, err, attempt) {
		c.logger.Debugf("provider:"+c.name, "retrying %s %s (attempt %d)", req.Method, req.URL.Path, attempt)
		return true, err
	}

	if err != nil {
		return false, err
	}

	if err = c.checkResponse(resp, req); err != nil {
		return false, err
	}

	if v != nil {
		if err = json.NewDecoder(resp.Body).Decode(v); err == io.EOF {
			err = nil
		}
	}

	return false, err
}

func (c *apiClient) shouldRetry(resp *http.Response, err error, attempt int) bool {
	if attempt >= c.retries {
		return false
	}
	if resp == nil || err != nil {
		return true
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

func (c *apiClient) checkResponse(resp *http.Response, req *http.Request) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		body = nil
	}

	return &APIError{
		Provider: c.name,
		Op:       fmt.Sprintf("%s %s", req.Method, req.URL.Path),
		Status:   resp.StatusCode,
		Body:     string(bytes.TrimSpace(body)),
	}
}
