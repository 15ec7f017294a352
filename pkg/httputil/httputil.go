package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Get performs a GET request and returns the status code and raw body.
func Get(ctx context.Context, url string, header map[string]string) (int, []byte, error) {
	return do(ctx, http.MethodGet, url, nil, header)
}

// Post performs a POST request with the given body and returns the status
// code and raw body.
func Post(
	ctx context.Context, url string, body []byte, header map[string]string,
) (int, []byte, error) {
	return do(ctx, http.MethodPost, url, body, header)
}

func do(
	ctx context.Context, method, url string, body []byte,
	header map[string]string,
) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer rs.Body.Close()

	bodyBytes, err := io.ReadAll(rs.Body)
	if err != nil {
		return 0, nil, err
	}
	return rs.StatusCode, bodyBytes, nil
}
