package tryon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"server/internal/domain"
)

// AssetPrecheck verifies that source images are reachable before any quota is
// spent or any job record created.
type AssetPrecheck struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewAssetPrecheck builds a precheck with the given per-request timeout.
func NewAssetPrecheck(httpClient *http.Client, timeout time.Duration) *AssetPrecheck {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &AssetPrecheck{httpClient: httpClient, timeout: timeout}
}

// Check issues a HEAD request against each URL concurrently. Any unreachable
// asset fails the whole check with domain.ErrAssetUnreachable.
func (p *AssetPrecheck) Check(ctx context.Context, urls ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			return p.checkOne(gctx, u)
		})
	}
	return g.Wait()
}

func (p *AssetPrecheck) checkOne(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrAssetUnreachable, url)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrAssetUnreachable, url)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s returned %d", domain.ErrAssetUnreachable, url, resp.StatusCode)
	}
	return nil
}
