package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/storage"
)

const defaultDownloadTimeout = 60 * time.Second

// Ingestor moves a generated artifact from the provider's ephemeral URL
// into durable storage. It knows nothing about jobs; the caller decides
// what a failed ingestion means.
type Ingestor struct {
	httpClient *http.Client
	store      storage.BlobStore
	timeout    time.Duration
	logger     zerolog.Logger
}

type Options struct {
	HTTPClient      *http.Client
	Store           storage.BlobStore
	DownloadTimeout time.Duration
	Logger          zerolog.Logger
}

func New(opts Options) *Ingestor {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.DownloadTimeout
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &Ingestor{
		httpClient: client,
		store:      opts.Store,
		timeout:    timeout,
		logger:     opts.Logger,
	}
}

// Ingest downloads remoteURL into a scratch file and uploads it to the
// store under an owner-scoped key. It returns the durable URL and true
// on success, and ("", false) on any failure; serving the ephemeral
// remote URL is preferable to losing the result, so failures here never
// propagate as errors.
func (g *Ingestor) Ingest(ctx context.Context, remoteURL, ownerID string) (string, bool) {
	if g == nil || g.store == nil {
		return "", false
	}
	if strings.TrimSpace(remoteURL) == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	scratch, contentType, err := g.download(ctx, remoteURL)
	if err != nil {
		g.logger.Warn().Err(err).Str("remote_url", remoteURL).Msg("ingest: download failed")
		return "", false
	}
	defer os.Remove(scratch)

	key := storageKey(ownerID, remoteURL, contentType)
	durableURL, err := g.store.UploadFile(ctx, scratch, key)
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("ingest: upload failed")
		return "", false
	}
	return durableURL, true
}

// download streams the remote resource into a temp file so memory use
// stays bounded regardless of artifact size. The caller removes the
// returned path.
func (g *Ingestor) download(ctx context.Context, remoteURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("ingest: download http %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "ingest-*")
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("ingest: stream body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", err
	}
	return tmp.Name(), resp.Header.Get("Content-Type"), nil
}

// storageKey builds an owner-scoped key, preferring the content type
// for the extension and falling back to the remote path's.
func storageKey(ownerID, remoteURL, contentType string) string {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		owner = "anonymous"
	}
	ext := extensionForContentType(contentType)
	if ext == "" {
		if e := strings.ToLower(path.Ext(trimQuery(remoteURL))); len(e) > 1 && len(e) <= 5 {
			ext = e
		} else {
			ext = ".bin"
		}
	}
	return fmt.Sprintf("generated/%s/%s%s", owner, uuid.NewString(), ext)
}

func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

func trimQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}
