package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxDownloadSize caps the number of bytes Fetch reads.
const MaxDownloadSize = 64 << 20

var (
	ErrorURLNotFound = errors.New("URL not found")
	ErrTooLarge      = errors.New("content exceeds maximum download size")
)

func getResp(ctx context.Context, url string) (resp *http.Response, err error) {
	c, err := GetHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}

	req.Header.Set("User-Agent", clientAgent)

	return c.Do(req) //nolint:gosec // G107: URL provided by the local operator
}

// Fetch downloads the content at url into memory.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := getResp(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("error executing HTTP Get request: %w", err)
	}
	defer resp.Body.Close()
	PrintHTTPResponse(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrorURLNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading downloaded content: %w", err)
	}
	if len(b) > MaxDownloadSize {
		return nil, ErrTooLarge
	}

	return b, nil
}
