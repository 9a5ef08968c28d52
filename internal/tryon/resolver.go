package tryon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// resultExtensions is the fixed candidate set for probed result URLs. The
// literal "undefined" is a real extension variant the provider produces, not
// a placeholder.
var resultExtensions = []string{"jpg", "png", "jpeg", "webp", "undefined"}

// Resolution classifies one resolver pass over the provider's asset host.
type Resolution struct {
	Ready bool
	URL   string
}

// ResultResolver probes candidate result URLs for a provider job id and
// classifies readiness from the HTTP status alone:
//
//   - 200: the asset is fetchable now.
//   - 403: the asset exists but is access-restricted; not deliverable, keep
//     waiting for the webhook. Exception: a UUID-shaped provider job id is
//     treated as directly usable despite the 403 (the provider's newer URL
//     scheme answers 403 to HEAD while the object is publicly fetchable).
//   - 404 and everything else, including transport errors: not ready yet.
type ResultResolver struct {
	httpClient   *http.Client
	assetBaseURL string
	probeTimeout time.Duration
	logger       zerolog.Logger
}

// ResolverOptions configures a ResultResolver.
type ResolverOptions struct {
	AssetBaseURL string
	ProbeTimeout time.Duration
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// NewResultResolver builds a resolver against the provider's asset host.
func NewResultResolver(opts ResolverOptions) *ResultResolver {
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &ResultResolver{
		httpClient:   client,
		assetBaseURL: strings.TrimRight(opts.AssetBaseURL, "/"),
		probeTimeout: timeout,
		logger:       opts.Logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve probes each candidate in turn. Total time is bounded by
// len(resultExtensions) * probeTimeout.
func (r *ResultResolver) Resolve(ctx context.Context, providerJobID string) Resolution {
	for _, ext := range resultExtensions {
		candidate := fmt.Sprintf("%s/%s.%s", r.assetBaseURL, providerJobID, ext)
		status, err := r.probe(ctx, candidate)
		if err != nil {
			r.logger.Debug().Err(err).Str("url", candidate).Msg("probe failed")
			continue
		}
		switch status {
		case http.StatusOK:
			return Resolution{Ready: true, URL: candidate}
		case http.StatusForbidden:
			if _, err := uuid.Parse(providerJobID); err == nil {
				return Resolution{Ready: true, URL: candidate}
			}
			// Exists but restricted: the webhook is the authoritative signal.
		}
	}
	return Resolution{}
}

func (r *ResultResolver) probe(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
