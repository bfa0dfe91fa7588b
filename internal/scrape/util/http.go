package util

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"jobhunt-aggregator/internal/domain"
)

const (
	UserAgent    = "JobHunt-Aggregator/1.0 (+local)"
	maxBodyBytes = 16 << 20
)

// FetchBody GETs raw and returns the body. Transport errors and HTTP error
// statuses are wrapped in domain.ErrSourceUnavailable.
func FetchBody(ctx context.Context, hc *http.Client, limiter *HostLimiter, raw string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", domain.ErrSourceUnavailable, raw, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if err := limiter.WaitURL(ctx, raw); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrSourceUnavailable, err)
	}

	res, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrSourceUnavailable, raw, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, raw, err)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned status %d body=%s",
			domain.ErrSourceUnavailable, raw, res.StatusCode, Truncate(string(body), 160))
	}
	return body, nil
}
