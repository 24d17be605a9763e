package out

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"memestickers/internal/modules/pack/domain"
	packout "memestickers/internal/modules/pack/port/out"
	"memestickers/internal/platform/clock"
)

const (
	defaultHubTimeout  = 30 * time.Second
	defaultHubCacheTTL = time.Hour
	maxHubBodyBytes    = 8 << 20
	downloadChunkBytes = 32 << 10
)

type HubClientOptions struct {
	HubURL      string
	IndexURL    string
	RawTemplate string
	Timeout     time.Duration
	CacheTTL    time.Duration
	HTTPClient  *http.Client
	Clock       clock.Clock
}

type catalogCache struct {
	packs     []domain.HubPackInfo
	fetchedAt time.Time
}

// HTTPHubClient reads the hub catalog. The cached catalog is replaced as a
// whole after a successful fetch; readers never wait on an in-flight fetch.
type HTTPHubClient struct {
	hubURL      string
	indexURL    string
	rawTemplate string
	ttl         time.Duration
	httpClient  *http.Client
	clock       clock.Clock

	mu    sync.RWMutex
	cache *catalogCache
}

func NewHTTPHubClient(opts HubClientOptions) *HTTPHubClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHubTimeout
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultHubCacheTTL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &HTTPHubClient{
		hubURL:      strings.TrimRight(strings.TrimSpace(opts.HubURL), "/"),
		indexURL:    strings.TrimSpace(opts.IndexURL),
		rawTemplate: opts.RawTemplate,
		ttl:         ttl,
		httpClient:  httpClient,
		clock:       clk,
	}
}

var _ packout.HubClient = (*HTTPHubClient)(nil)

type catalogResponse struct {
	Status  string                `json:"status"`
	Packs   *[]domain.HubPackInfo `json:"packs"`
	Error   string                `json:"error"`
	Message string                `json:"message"`
}

func (c *HTTPHubClient) FetchPacks(ctx context.Context, forceRefresh bool) ([]domain.HubPackInfo, error) {
	if !forceRefresh {
		if packs, ok := c.cached(); ok {
			return packs, nil
		}
	}
	var body catalogResponse
	if err := c.getJSON(ctx, "fetch packs", c.hubURL+"/packs", &body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		reason := body.Error
		if reason == "" {
			reason = body.Message
		}
		if reason == "" {
			reason = "unknown error"
		}
		return nil, &domain.HubError{Op: "fetch packs", Err: fmt.Errorf("%w: %s", domain.ErrHubStatus, reason)}
	}
	if body.Packs == nil {
		return nil, &domain.HubError{Op: "fetch packs", Err: errors.New("response has no packs array")}
	}
	packs := append([]domain.HubPackInfo(nil), (*body.Packs)...)

	c.mu.Lock()
	c.cache = &catalogCache{packs: packs, fetchedAt: c.clock.Now()}
	c.mu.Unlock()
	return append([]domain.HubPackInfo(nil), packs...), nil
}

func (c *HTTPHubClient) cached() ([]domain.HubPackInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cache == nil {
		return nil, false
	}
	if c.clock.Now().Sub(c.cache.fetchedAt) >= c.ttl {
		return nil, false
	}
	return append([]domain.HubPackInfo(nil), c.cache.packs...), true
}

func (c *HTTPHubClient) FetchPackInfo(ctx context.Context, name string, forceRefresh bool) (domain.HubPackInfo, bool, error) {
	packs, err := c.FetchPacks(ctx, forceRefresh)
	if err != nil {
		return domain.HubPackInfo{}, false, err
	}
	for _, p := range packs {
		if p.Name == name {
			return p, true, nil
		}
	}
	return domain.HubPackInfo{}, false, nil
}

func (c *HTTPHubClient) ClearCache() {
	c.mu.Lock()
	c.cache = nil
	c.mu.Unlock()
}

// DownloadPack streams url to outputPath. A partial file may remain on
// failure; callers own cleanup.
func (c *HTTPHubClient) DownloadPack(ctx context.Context, url, outputPath string, progress domain.ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &domain.HubError{Op: "download", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.HubError{Op: "download", Transient: true, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.HubError{
			Op:        "download",
			Status:    resp.StatusCode,
			Transient: resp.StatusCode >= 500,
			Err:       fmt.Errorf("unexpected status for %s", url),
		}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &domain.HubError{Op: "download", Err: fmt.Errorf("create download dir: %w", err)}
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return &domain.HubError{Op: "download", Err: fmt.Errorf("create download file: %w", err)}
	}
	written, copyErr := copyWithProgress(file, resp.Body, resp.ContentLength, progress)
	closeErr := file.Close()
	if copyErr != nil {
		return &domain.HubError{Op: "download", Transient: true, Err: copyErr}
	}
	if closeErr != nil {
		return &domain.HubError{Op: "download", Err: closeErr}
	}
	progress.Report("downloaded %d bytes", written)
	return nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress domain.ProgressFunc) (int64, error) {
	buf := make([]byte, downloadChunkBytes)
	var written int64
	lastPercent := int64(-1)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if total > 0 && progress != nil {
				percent := written * 100 / total
				if percent/10 != lastPercent/10 {
					lastPercent = percent
					progress.Report("downloading %d%%", percent)
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func (c *HTTPHubClient) FetchHubIndex(ctx context.Context) ([]domain.HubPackReference, error) {
	if c.indexURL == "" {
		return nil, &domain.HubError{Op: "fetch hub index", Err: errors.New("hub index url is not configured")}
	}
	var index domain.HubIndex
	if err := c.getJSON(ctx, "fetch hub index", c.indexURL, &index); err != nil {
		return nil, err
	}
	return index.Packs, nil
}

func (c *HTTPHubClient) FetchPackManifest(ctx context.Context, source domain.GitHubSource) (domain.RemoteManifest, error) {
	if err := source.Validate(); err != nil {
		return domain.RemoteManifest{}, &domain.HubError{Op: "fetch pack manifest", Err: err}
	}
	var manifest domain.RemoteManifest
	url := source.RawURL(c.rawTemplate, domain.ManifestFile)
	if err := c.getJSON(ctx, "fetch pack manifest", url, &manifest); err != nil {
		return domain.RemoteManifest{}, err
	}
	return manifest, nil
}

func (c *HTTPHubClient) getJSON(ctx context.Context, op, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &domain.HubError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.HubError{Op: op, Transient: true, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.HubError{
			Op:        op,
			Status:    resp.StatusCode,
			Transient: resp.StatusCode >= 500,
			Err:       fmt.Errorf("unexpected status for %s", url),
		}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxHubBodyBytes)).Decode(out); err != nil {
		return &domain.HubError{Op: op, Err: fmt.Errorf("invalid json: %w", err)}
	}
	return nil
}

// CalculateChecksum hashes the file at path in a single streaming pass.
func CalculateChecksum(path string, algorithm domain.ChecksumAlgorithm) (string, error) {
	var h hash.Hash
	switch algorithm {
	case domain.AlgorithmMD5:
		h = md5.New()
	case domain.AlgorithmSHA1:
		h = sha1.New()
	case domain.AlgorithmSHA256:
		h = sha256.New()
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedAlgorithm, algorithm)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
