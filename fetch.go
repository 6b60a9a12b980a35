package refetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
)

// fetch performs the actual round trip and decodes the response body. All
// failures come back as *RequestError or *NetworkError; a cancelled context
// is preserved in the chain so that the executor can tell cancellation apart
// from a genuine transport failure.
func fetch[T any](ctx context.Context, client *http.Client, endpoint string, opts RequestOptions) (T, error) {
	var noValue T

	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.method(), endpoint, body)
	if err != nil {
		return noValue, &NetworkError{err: err}
	}

	if len(opts.Query) > 0 {
		req.URL.RawQuery = url.Values(opts.Query).Encode()
	}
	for key, values := range opts.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return noValue, &NetworkError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		// Drain the body so that the connection can be reused.
		//nolint:errcheck
		io.Copy(io.Discard, resp.Body)
		return noValue, &RequestError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var data T
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		if errors.Is(err, context.Canceled) {
			return noValue, err
		}
		return noValue, &NetworkError{err: err}
	}
	return data, nil
}
