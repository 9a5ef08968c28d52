package tryon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/storage"
)

// maxArtifactBytes caps how much of a provider result is buffered for
// re-hosting.
const maxArtifactBytes = 32 << 20

// ArtifactPersister re-hosts an ephemeral provider result into durable object
// storage. Failures are not fatal: the job still completes against the
// original URL, flagged as a fallback.
type ArtifactPersister struct {
	httpClient *http.Client
	store      storage.ObjectStore
	logger     zerolog.Logger
	maxBytes   int64
}

// NewArtifactPersister builds a persister on top of the given object store.
func NewArtifactPersister(httpClient *http.Client, store storage.ObjectStore, logger zerolog.Logger) *ArtifactPersister {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ArtifactPersister{
		httpClient: httpClient,
		store:      store,
		logger:     logger.With().Str("component", "persister").Logger(),
		maxBytes:   maxArtifactBytes,
	}
}

// Persist fetches sourceURL and uploads the bytes under a job-scoped key.
// On any failure it returns the source URL with usedFallback=true.
func (p *ArtifactPersister) Persist(ctx context.Context, jobID, sourceURL string) (durableURL string, usedFallback bool) {
	data, contentType, err := p.fetch(ctx, sourceURL)
	if err != nil {
		p.logger.Warn().Err(err).Str("job_id", jobID).Str("source", sourceURL).Msg("fetch failed, keeping origin url")
		return sourceURL, true
	}
	key := fmt.Sprintf("results/%s%s", jobID, artifactExtension(sourceURL, contentType))
	durable, err := p.store.Write(ctx, key, data, contentType)
	if err != nil {
		p.logger.Warn().Err(err).Str("job_id", jobID).Str("key", key).Msg("upload failed, keeping origin url")
		return sourceURL, true
	}
	return durable, false
}

func (p *ArtifactPersister) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}
	// Read one byte past the cap so an oversized artifact is detected
	// instead of stored truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > p.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: artifact exceeds %d bytes", url, p.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("fetch %s: empty body", url)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// artifactExtension picks a storage extension, preferring the response MIME
// type over the source URL suffix; the provider's ".undefined" suffix is
// never carried into durable storage.
func artifactExtension(sourceURL, contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	ext := strings.ToLower(path.Ext(sourceURL))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	}
	return ".bin"
}
