package service_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	packadapter "memestickers/internal/modules/pack/adapter/out"
	"memestickers/internal/modules/pack/domain"
	packout "memestickers/internal/modules/pack/port/out"
	"memestickers/internal/modules/pack/service"
	"memestickers/internal/platform/retry"
)

// hubFixture serves a flat catalog plus arbitrary files: pack archives,
// an index and raw manifests.
type hubFixture struct {
	srv *httptest.Server

	mu       sync.Mutex
	packs    map[string]domain.HubPackInfo
	files    map[string][]byte
	failures int
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	h := &hubFixture{packs: map[string]domain.HubPackInfo{}, files: map[string][]byte{}}
	h.srv = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *hubFixture) serve(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failures > 0 {
		h.failures--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Path == "/packs" {
		list := make([]domain.HubPackInfo, 0, len(h.packs))
		for _, p := range h.packs {
			list = append(list, p)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "packs": list})
		return
	}
	payload, ok := h.files[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(payload)
}

// publish makes name@version downloadable. A nil entries map publishes a
// well-formed pack with two stickers.
func (h *hubFixture) publish(t *testing.T, name, version string, entries map[string]string) domain.HubPackInfo {
	t.Helper()
	if entries == nil {
		entries = map[string]string{
			name + "/metadata.json": fmt.Sprintf(`{"name":%q,"display_name":%q,"version":%q}`, name, name, version),
			name + "/stickers/a.png": "a-" + version,
			name + "/stickers/b.gif": "b-" + version,
		}
	}
	path := "/" + name + "-" + version + ".zip"
	info := domain.HubPackInfo{
		Name:        name,
		DisplayName: name,
		URL:         h.srv.URL + path,
		Version:     version,
		Author:      "fixture",
	}
	h.mu.Lock()
	h.packs[name] = info
	h.files[path] = zipBytes(t, entries)
	h.mu.Unlock()
	return info
}

func (h *hubFixture) serveFile(path string, payload []byte) string {
	h.mu.Lock()
	h.files[path] = payload
	h.mu.Unlock()
	return h.srv.URL + path
}

func (h *hubFixture) failNext(n int) {
	h.mu.Lock()
	h.failures = n
	h.mu.Unlock()
}

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

type recordingListener struct {
	mu     sync.Mutex
	events []domain.PackEvent
}

func (l *recordingListener) OnPackEvent(_ context.Context, e domain.PackEvent) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	return nil
}

func (l *recordingListener) states(pack string) []domain.PackState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []domain.PackState{}
	for _, e := range l.events {
		if e.PackName == pack {
			out = append(out, e.State)
		}
	}
	return out
}

func (l *recordingListener) count(state domain.PackState) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.State == state {
			n++
		}
	}
	return n
}

func (l *recordingListener) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceIDs) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("evt-%d", s.n)
}

type harness struct {
	dataDir  string
	packsDir string
	hub      *hubFixture
	svc      *service.PackService
	events   *recordingListener
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, func(*service.Options) {})
}

// newHarnessWith lets configure wrap or replace the wired options before
// the service is built.
func newHarnessWith(t *testing.T, configure func(*service.Options)) *harness {
	t.Helper()
	dataDir := t.TempDir()
	hub := newHubFixture(t)
	packsDir := filepath.Join(dataDir, "packs")
	hubClient := packadapter.NewHTTPHubClient(packadapter.HubClientOptions{
		HubURL:      hub.srv.URL,
		IndexURL:    hub.srv.URL + "/index.json",
		RawTemplate: hub.srv.URL + "/raw/{owner}/{repo}/{ref}/{path}",
		CacheTTL:    time.Nanosecond,
	})
	opts := service.Options{
		Repo:            packadapter.NewFSPackRepository(packsDir),
		Hub:             hubClient,
		Updater:         packadapter.NewZipUpdater(hubClient),
		Configs:         packadapter.NewJSONConfigStore(filepath.Join(dataDir, "config.json")),
		IDs:             &sequenceIDs{},
		Retry:           retry.Policy{Attempts: 3, Delay: time.Millisecond, Backoff: 1},
		DataDir:         dataDir,
		TempDir:         filepath.Join(dataDir, ".temp"),
		ReleaseTemplate: hub.srv.URL + "/releases/{owner}/{repo}/{tag}/{filename}",
	}
	configure(&opts)
	svc := service.NewPackService(opts)
	events := &recordingListener{}
	svc.OnPackStateChange(events)
	return &harness{dataDir: dataDir, packsDir: packsDir, hub: hub, svc: svc, events: events}
}

func writeLocalPack(t *testing.T, packsDir, name, manifest string, stickers ...string) {
	t.Helper()
	dir := filepath.Join(packsDir, name)
	if err := os.MkdirAll(filepath.Join(dir, "stickers"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	for _, s := range stickers {
		if err := os.WriteFile(filepath.Join(dir, "stickers", s), []byte(s), 0o644); err != nil {
			t.Fatalf("write sticker: %v", err)
		}
	}
}

// pausingRepo runs onList, when set, after the pack names were read and
// before they are returned.
type pausingRepo struct {
	packout.PackRepository
	onList func()
}

func (r *pausingRepo) ListNames(ctx context.Context) ([]string, error) {
	names, err := r.PackRepository.ListNames(ctx)
	if r.onList != nil {
		r.onList()
	}
	return names, err
}

// vanishingUpdater, once armed, deletes the target directory and fails the
// install as a failed final rename would.
type vanishingUpdater struct {
	packout.Updater
	armed atomic.Bool
}

func (u *vanishingUpdater) InstallPack(ctx context.Context, zipPath, installDir, packName string, progress domain.ProgressFunc) (domain.PackManifest, error) {
	if !u.armed.Load() {
		return u.Updater.InstallPack(ctx, zipPath, installDir, packName, progress)
	}
	if err := os.RemoveAll(filepath.Join(installDir, packName)); err != nil {
		return domain.PackManifest{}, err
	}
	return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: packName, Err: errors.New("move pack into place: disk full")}
}
