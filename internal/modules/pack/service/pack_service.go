package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"memestickers/internal/modules/pack/domain"
	packout "memestickers/internal/modules/pack/port/out"
	"memestickers/internal/platform/clock"
	apperrors "memestickers/internal/platform/errors"
	"memestickers/internal/platform/id"
	"memestickers/internal/platform/logging"
	"memestickers/internal/platform/metrics"
	"memestickers/internal/platform/retry"
	"memestickers/internal/platform/tx"
)

type Options struct {
	Repo    packout.PackRepository
	Hub     packout.HubClient
	Updater packout.Updater
	Configs packout.ConfigStore
	Journal packout.EventJournal

	Clock   clock.Clock
	IDs     id.Generator
	Logger  *slog.Logger
	Metrics metrics.Metrics
	Retry   retry.Policy
	// Locks serializes install, update and delete of one pack name.
	Locks tx.Manager

	DataDir         string
	TempDir         string
	ReleaseTemplate string
	AutoUpdate      bool
	ForceUpdate     bool
}

// registry is published whole through an atomic pointer and never mutated
// after publication.
type registry struct {
	packs     map[string]domain.LoadedPack
	manifests map[string]domain.PackManifest
	configs   map[string]domain.PackConfig
}

func emptyRegistry() *registry {
	return &registry{
		packs:     map[string]domain.LoadedPack{},
		manifests: map[string]domain.PackManifest{},
		configs:   map[string]domain.PackConfig{},
	}
}

func (r *registry) clone() *registry {
	out := emptyRegistry()
	for k, v := range r.packs {
		out.packs[k] = v
	}
	for k, v := range r.manifests {
		out.manifests[k] = v
	}
	for k, v := range r.configs {
		out.configs[k] = v
	}
	return out
}

// PackService is the pack lifecycle manager. Readers never block; writers
// build a modified copy of the registry and swap it in.
type PackService struct {
	repo    packout.PackRepository
	hub     packout.HubClient
	updater packout.Updater
	configs packout.ConfigStore
	journal packout.EventJournal

	clock   clock.Clock
	ids     id.Generator
	logger  *slog.Logger
	metrics metrics.Metrics
	retry   retry.Policy
	locks   tx.Manager

	dataDir         string
	tempDir         string
	releaseTemplate string
	autoUpdate      bool
	forceUpdate     bool

	writeMu sync.Mutex
	reg     atomic.Pointer[registry]

	// tempMu guards creation and removal of the shared temp dir.
	tempMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []domain.Listener
}

func NewPackService(opts Options) *PackService {
	s := &PackService{
		repo:            opts.Repo,
		hub:             opts.Hub,
		updater:         opts.Updater,
		configs:         opts.Configs,
		journal:         opts.Journal,
		clock:           opts.Clock,
		ids:             opts.IDs,
		logger:          logging.OrDiscard(opts.Logger),
		metrics:         opts.Metrics,
		retry:           opts.Retry,
		locks:           opts.Locks,
		dataDir:         opts.DataDir,
		tempDir:         opts.TempDir,
		releaseTemplate: opts.ReleaseTemplate,
		autoUpdate:      opts.AutoUpdate,
		forceUpdate:     opts.ForceUpdate,
	}
	if s.clock == nil {
		s.clock = clock.SystemClock{}
	}
	if s.ids == nil {
		s.ids = id.UUID{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	if s.locks == nil {
		s.locks = tx.NewKeyedManager()
	}
	if s.retry.Attempts == 0 {
		s.retry = retry.DefaultPolicy()
	}
	if s.tempDir == "" {
		s.tempDir = filepath.Join(filepath.Dir(s.repo.Root()), ".temp")
	}
	if s.dataDir == "" {
		s.dataDir = filepath.Dir(s.repo.Root())
	}
	s.reg.Store(emptyRegistry())
	return s
}

// OnPackStateChange registers a listener for every later transition.
func (s *PackService) OnPackStateChange(l domain.Listener) {
	if l == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

func (s *PackService) emit(ctx context.Context, pack string, state domain.PackState, cause error, data map[string]any) {
	s.dispatch(ctx, s.event(pack, state, cause, data))
}

func (s *PackService) event(pack string, state domain.PackState, cause error, data map[string]any) domain.PackEvent {
	event := domain.PackEvent{
		ID:       s.ids.New(),
		PackName: pack,
		State:    state,
		Data:     data,
		At:       s.clock.Now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	return event
}

func (s *PackService) dispatch(ctx context.Context, events ...domain.PackEvent) {
	if len(events) == 0 {
		return
	}
	s.listenersMu.RLock()
	listeners := append([]domain.Listener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, event := range events {
		for _, l := range listeners {
			s.notify(ctx, l, event)
		}
	}
}

func (s *PackService) notify(ctx context.Context, l domain.Listener, event domain.PackEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WarnContext(ctx, "pack listener panicked", "pack", event.PackName, "state", string(event.State), "err", fmt.Sprint(r))
		}
	}()
	if err := l.OnPackEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "pack listener failed", "pack", event.PackName, "state", string(event.State), "err", err)
	}
}

// Reload rebuilds the registry from disk and swaps it in. Per-pack failures
// are reported as ERROR events only; the returned error covers an
// unreadable packs directory. Writers wait for the whole scan, so a pack
// published meanwhile lands on top of the fresh registry. Events are
// delivered once the registry is swapped.
func (s *PackService) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	events, err := s.reloadLocked(ctx)
	s.writeMu.Unlock()
	s.dispatch(ctx, events...)
	return err
}

func (s *PackService) reloadLocked(ctx context.Context) ([]domain.PackEvent, error) {
	names, err := s.repo.ListNames(ctx)
	if err != nil {
		return nil, &domain.ManagerError{Op: "reload packs", Err: err}
	}
	var events []domain.PackEvent
	next := emptyRegistry()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return events, &domain.ManagerError{Op: "reload packs", Err: err}
		}
		events = append(events, s.event(name, domain.StateLoading, nil, nil))
		manifest, err := s.repo.Load(ctx, name)
		if err != nil {
			events = append(events, s.event(name, domain.StateError, err, nil))
			continue
		}
		next.packs[name] = s.loadedPack(name)
		next.manifests[name] = manifest
		events = append(events, s.event(name, domain.StateLoaded, nil, map[string]any{"stickers": len(manifest.Stickers)}))
	}

	persisted, err := s.configs.Load(ctx)
	if err != nil {
		s.logger.DebugContext(ctx, "ignoring unreadable pack config", "err", err)
		persisted = map[string]domain.PackConfig{}
	}
	for name, cfg := range persisted {
		if cfg.Name != "" && cfg.Name != name {
			events = append(events, s.event(name, domain.StateError, fmt.Errorf("config entry %q names pack %q", name, cfg.Name), nil))
			if manifest, ok := next.manifests[name]; ok {
				next.configs[name] = domain.NewPackConfig(manifest)
			}
			continue
		}
		cfg.Name = name
		next.configs[name] = cfg.Clone()
	}
	for name, manifest := range next.manifests {
		if _, ok := next.configs[name]; !ok {
			next.configs[name] = domain.NewPackConfig(manifest)
		}
	}

	s.reg.Store(next)
	s.metrics.SetPacksLoaded(len(next.packs))
	return events, nil
}

func (s *PackService) loadedPack(name string) domain.LoadedPack {
	return domain.LoadedPack{Name: name, Dir: filepath.Join(s.repo.Root(), name), LoadedAt: s.clock.Now()}
}

// mutate applies fn to a private copy of the registry, publishes it and
// persists its configs. Saves happen under the write lock so the file never
// goes back to an older map.
func (s *PackService) mutate(ctx context.Context, fn func(r *registry) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := s.reg.Load().clone()
	if err := fn(next); err != nil {
		return err
	}
	s.reg.Store(next)
	s.metrics.SetPacksLoaded(len(next.packs))
	return s.configs.Save(ctx, next.configs)
}

func (s *PackService) withPack(ctx context.Context, name string, fn func(context.Context) error) error {
	return s.locks.Within(ctx, "pack:"+name, fn)
}

// resync makes the registry entry for name match the disk after a failed
// install or update: a directory that no longer loads is unregistered.
func (s *PackService) resync(ctx context.Context, name string) {
	manifest, loadErr := s.repo.Load(ctx, name)
	err := s.mutate(ctx, func(r *registry) error {
		if loadErr != nil {
			delete(r.packs, name)
			delete(r.manifests, name)
			return nil
		}
		if _, ok := r.packs[name]; !ok {
			r.packs[name] = s.loadedPack(name)
		}
		r.manifests[name] = manifest
		if _, ok := r.configs[name]; !ok {
			r.configs[name] = domain.NewPackConfig(manifest)
		}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "resync pack after failure", "pack", name, "err", err)
	}
}

// InstallPack downloads info, installs it under name (or info.Name) and
// loads the result. The working directory is removed on every path.
func (s *PackService) InstallPack(ctx context.Context, info domain.HubPackInfo, name string, progress domain.ProgressFunc) (domain.PackManifest, error) {
	finalName := strings.TrimSpace(name)
	if finalName == "" {
		finalName = info.Name
	}
	var manifest domain.PackManifest
	err := s.withPack(ctx, finalName, func(ctx context.Context) error {
		s.emit(ctx, finalName, domain.StateInstalling, nil, map[string]any{"version": info.Version})
		var err error
		manifest, err = s.install(ctx, info, finalName, progress)
		if err != nil {
			s.emit(ctx, finalName, domain.StateError, err, nil)
			return err
		}
		s.emit(ctx, finalName, domain.StateInstalled, nil, map[string]any{"version": manifest.Version, "stickers": len(manifest.Stickers)})
		return nil
	})
	if err != nil {
		return domain.PackManifest{}, &domain.ManagerError{Op: "install pack", Pack: finalName, Err: err}
	}
	return manifest, nil
}

func (s *PackService) install(ctx context.Context, info domain.HubPackInfo, finalName string, progress domain.ProgressFunc) (domain.PackManifest, error) {
	zipPath, workDir, err := s.download(ctx, info, progress)
	defer s.cleanTemp(workDir)
	if err != nil {
		return domain.PackManifest{}, err
	}
	if _, err := s.updater.InstallPack(ctx, zipPath, s.repo.Root(), finalName, progress); err != nil {
		s.resync(ctx, finalName)
		return domain.PackManifest{}, err
	}
	_ = os.Remove(zipPath)
	manifest, err := s.repo.Load(ctx, finalName)
	if err != nil {
		s.resync(ctx, finalName)
		return domain.PackManifest{}, err
	}
	if err := s.publishPack(ctx, finalName, manifest, info); err != nil {
		return domain.PackManifest{}, err
	}
	return manifest, nil
}

// download fetches info into a private directory under the temp dir so
// concurrent operations never share files.
func (s *PackService) download(ctx context.Context, info domain.HubPackInfo, progress domain.ProgressFunc) (string, string, error) {
	workDir, err := s.makeWorkDir()
	if err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}
	var zipPath string
	err = s.withRetry(ctx, func(ctx context.Context) error {
		path, err := s.updater.DownloadPack(ctx, info, workDir, progress)
		zipPath = path
		return err
	})
	return zipPath, workDir, err
}

func (s *PackService) makeWorkDir() (string, error) {
	s.tempMu.Lock()
	defer s.tempMu.Unlock()
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(s.tempDir, "download-*")
}

func (s *PackService) cleanTemp(workDir string) {
	if workDir == "" {
		return
	}
	s.tempMu.Lock()
	defer s.tempMu.Unlock()
	if err := os.RemoveAll(workDir); err != nil {
		s.logger.Warn("remove temp dir", "dir", workDir, "err", err)
	}
	// Fails while another operation still owns a directory in there.
	_ = os.Remove(s.tempDir)
}

// publishPack registers a freshly installed manifest and keeps its config in
// step, creating the default config on first install.
func (s *PackService) publishPack(ctx context.Context, name string, manifest domain.PackManifest, info domain.HubPackInfo) error {
	return s.mutate(ctx, func(r *registry) error {
		r.packs[name] = s.loadedPack(name)
		r.manifests[name] = manifest
		cfg, ok := r.configs[name]
		if !ok {
			cfg = domain.NewPackConfig(manifest)
		} else {
			cfg = cfg.Clone()
			cfg.DisplayName = manifest.DisplayName
			cfg.Description = manifest.Description
			cfg.Author = manifest.Author
		}
		cfg.Version = manifest.Version
		if info.URL != "" {
			cfg.URL = info.URL
		}
		if info.Checksum != "" {
			cfg.Checksum = info.Checksum
		}
		r.configs[name] = cfg
		return nil
	})
}

// originURL is where updates for name come from: the manifest url, else
// the url recorded in its config at install time.
func (s *PackService) originURL(name string) (domain.PackManifest, string, bool) {
	reg := s.reg.Load()
	manifest, ok := reg.manifests[name]
	if !ok {
		return domain.PackManifest{}, "", false
	}
	if manifest.URL != "" {
		return manifest, manifest.URL, true
	}
	if cfg, ok := reg.configs[name]; ok && cfg.URL != "" {
		return manifest, cfg.URL, true
	}
	return manifest, "", true
}

// UpdatePack replaces name with the hub's newer version. The current
// directory is kept aside until the new one loads, and put back on failure.
func (s *PackService) UpdatePack(ctx context.Context, name string, force bool, progress domain.ProgressFunc) (domain.UpdateResult, error) {
	result := domain.UpdateResult{Pack: name}
	err := s.withPack(ctx, name, func(ctx context.Context) error {
		s.emit(ctx, name, domain.StateUpdating, nil, nil)
		var err error
		result, err = s.update(ctx, name, force, progress)
		if err != nil {
			s.emit(ctx, name, domain.StateError, err, nil)
			return err
		}
		s.emit(ctx, name, domain.StateUpdated, nil, map[string]any{
			"changed":     result.Changed,
			"old_version": result.OldVersion,
			"new_version": result.NewVersion,
		})
		return nil
	})
	if err != nil {
		result.Err = err
		return result, &domain.ManagerError{Op: "update pack", Pack: name, Err: err}
	}
	return result, nil
}

func (s *PackService) update(ctx context.Context, name string, force bool, progress domain.ProgressFunc) (domain.UpdateResult, error) {
	result := domain.UpdateResult{Pack: name}
	manifest, url, ok := s.originURL(name)
	if !ok {
		return result, fmt.Errorf("%w: %s", domain.ErrPackNotFound, name)
	}
	result.OldVersion = manifest.Version
	result.NewVersion = manifest.Version
	if url == "" {
		return result, fmt.Errorf("%w: %s", domain.ErrNoUpdateURL, name)
	}

	var (
		info      domain.HubPackInfo
		available bool
	)
	current := manifest.Version
	if force {
		current = ""
	}
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		info, available, err = s.updater.CheckUpdateAvailable(ctx, name, current)
		return err
	})
	if err != nil {
		return result, err
	}
	if info.Name == "" {
		return result, fmt.Errorf("%w in hub: %s", domain.ErrPackNotFound, name)
	}
	if !available {
		progress.Report("%s is already up to date (%s)", name, manifest.Version)
		return result, nil
	}

	zipPath, workDir, err := s.download(ctx, info, progress)
	defer s.cleanTemp(workDir)
	if err != nil {
		return result, err
	}
	backup, err := s.repo.Backup(ctx, name)
	if err != nil {
		return result, err
	}
	fresh, err := s.replace(ctx, zipPath, name, progress)
	if err != nil {
		restoreErr := s.repo.Restore(ctx, name, backup)
		if restoreErr != nil {
			s.logger.ErrorContext(ctx, "restore pack after failed update", "pack", name, "err", restoreErr)
			err = errors.Join(err, restoreErr)
		}
		s.resync(ctx, name)
		return result, err
	}
	if err := s.repo.DiscardBackup(ctx, backup); err != nil {
		s.logger.WarnContext(ctx, "discard pack backup", "pack", name, "backup", backup, "err", err)
	}
	if err := s.publishPack(ctx, name, fresh, info); err != nil {
		return result, err
	}
	result.Changed = true
	result.NewVersion = fresh.Version
	return result, nil
}

func (s *PackService) replace(ctx context.Context, zipPath, name string, progress domain.ProgressFunc) (domain.PackManifest, error) {
	if _, err := s.updater.InstallPack(ctx, zipPath, s.repo.Root(), name, progress); err != nil {
		return domain.PackManifest{}, err
	}
	return s.repo.Load(ctx, name)
}

// DeletePack removes name from disk and from every registry. A pack that is
// already gone on disk is not an error.
func (s *PackService) DeletePack(ctx context.Context, name string) error {
	err := s.withPack(ctx, name, func(ctx context.Context) error {
		s.emit(ctx, name, domain.StateDeleting, nil, nil)
		if err := s.delete(ctx, name); err != nil {
			s.emit(ctx, name, domain.StateError, err, nil)
			return err
		}
		s.emit(ctx, name, domain.StateDeleted, nil, nil)
		return nil
	})
	if err != nil {
		return &domain.ManagerError{Op: "delete pack", Pack: name, Err: err}
	}
	return nil
}

func (s *PackService) delete(ctx context.Context, name string) error {
	if err := s.repo.Remove(ctx, name); err != nil {
		return err
	}
	return s.mutate(ctx, func(r *registry) error {
		delete(r.packs, name)
		delete(r.manifests, name)
		delete(r.configs, name)
		return nil
	})
}

func (s *PackService) SetEnabled(ctx context.Context, name string, enabled bool) error {
	op := "disable pack"
	if enabled {
		op = "enable pack"
	}
	return s.updateConfig(ctx, op, name, func(cfg *domain.PackConfig) error {
		cfg.Enabled = enabled
		return nil
	})
}

// AddShortcut registers sc on pack. Shortcut names are unique across packs.
func (s *PackService) AddShortcut(ctx context.Context, pack string, sc domain.Shortcut) error {
	if err := sc.Validate(); err != nil {
		return &domain.ManagerError{Op: "add shortcut", Pack: pack, Err: fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)}
	}
	for _, existing := range s.Shortcuts() {
		if existing.Shortcut.Name == sc.Name && existing.Pack != pack {
			return &domain.ManagerError{Op: "add shortcut", Pack: pack, Err: fmt.Errorf("%w: shortcut %q already belongs to %s", apperrors.ErrInvalidInput, sc.Name, existing.Pack)}
		}
	}
	return s.updateConfig(ctx, "add shortcut", pack, func(cfg *domain.PackConfig) error {
		for i, existing := range cfg.Shortcuts {
			if existing.Name == sc.Name {
				cfg.Shortcuts[i] = sc
				return nil
			}
		}
		cfg.Shortcuts = append(cfg.Shortcuts, sc)
		return nil
	})
}

func (s *PackService) RemoveShortcut(ctx context.Context, pack, name string) error {
	return s.updateConfig(ctx, "remove shortcut", pack, func(cfg *domain.PackConfig) error {
		kept := cfg.Shortcuts[:0]
		found := false
		for _, existing := range cfg.Shortcuts {
			if existing.Name == name {
				found = true
				continue
			}
			kept = append(kept, existing)
		}
		if !found {
			return fmt.Errorf("%w: shortcut %q", apperrors.ErrNotFound, name)
		}
		cfg.Shortcuts = kept
		return nil
	})
}

func (s *PackService) updateConfig(ctx context.Context, op, name string, fn func(cfg *domain.PackConfig) error) error {
	err := s.mutate(ctx, func(r *registry) error {
		manifest, ok := r.manifests[name]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrPackNotFound, name)
		}
		cfg, ok := r.configs[name]
		if !ok {
			cfg = domain.NewPackConfig(manifest)
		}
		cfg = cfg.Clone()
		if err := fn(&cfg); err != nil {
			return err
		}
		r.configs[name] = cfg
		return nil
	})
	if err != nil {
		return &domain.ManagerError{Op: op, Pack: name, Err: err}
	}
	return nil
}

func (s *PackService) FetchHubPacks(ctx context.Context, forceRefresh bool) ([]domain.HubPackInfo, error) {
	var packs []domain.HubPackInfo
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		packs, err = s.hub.FetchPacks(ctx, forceRefresh)
		return err
	})
	if err != nil {
		return nil, &domain.ManagerError{Op: "fetch hub packs", Err: err}
	}
	return packs, nil
}

// InstallByName resolves name in the flat hub catalog and installs it,
// optionally under another directory name.
func (s *PackService) InstallByName(ctx context.Context, name, as string, refresh bool, progress domain.ProgressFunc) (domain.PackManifest, error) {
	var (
		info  domain.HubPackInfo
		found bool
	)
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		info, found, err = s.hub.FetchPackInfo(ctx, name, refresh)
		return err
	})
	if err != nil {
		return domain.PackManifest{}, &domain.ManagerError{Op: "install pack", Pack: name, Err: err}
	}
	if !found {
		return domain.PackManifest{}, &domain.ManagerError{Op: "install pack", Pack: name, Err: fmt.Errorf("%w in hub: %s", domain.ErrPackNotFound, name)}
	}
	return s.InstallPack(ctx, info, as, progress)
}

func (s *PackService) HubIndex(ctx context.Context) ([]domain.HubPackReference, error) {
	var refs []domain.HubPackReference
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		refs, err = s.hub.FetchHubIndex(ctx)
		return err
	})
	if err != nil {
		return nil, &domain.ManagerError{Op: "fetch hub index", Err: err}
	}
	return refs, nil
}

// InstallFromHub installs slug from the index hub. The archive is the
// remote manifest's url, else the release asset v<version>/<slug>.zip.
func (s *PackService) InstallFromHub(ctx context.Context, slug string, progress domain.ProgressFunc) (domain.PackManifest, error) {
	refs, err := s.HubIndex(ctx)
	if err != nil {
		return domain.PackManifest{}, &domain.ManagerError{Op: "install pack from hub", Pack: slug, Err: err}
	}
	index := domain.HubIndex{Packs: refs}
	ref, ok := index.Find(slug)
	if !ok {
		return domain.PackManifest{}, &domain.ManagerError{Op: "install pack from hub", Pack: slug, Err: fmt.Errorf("%w in hub: %s", domain.ErrPackNotFound, slug)}
	}
	var remote domain.RemoteManifest
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		remote, err = s.hub.FetchPackManifest(ctx, ref.Source)
		return err
	})
	if err != nil {
		return domain.PackManifest{}, &domain.ManagerError{Op: "install pack from hub", Pack: slug, Err: err}
	}
	downloadURL := remote.URL
	if downloadURL == "" {
		version := remote.Version
		if version == "" {
			version = domain.DefaultVersion
		}
		downloadURL = ref.Source.ReleaseURL(s.releaseTemplate, "v"+version, slug+".zip")
	}
	return s.InstallPack(ctx, remote.HubInfo(slug, downloadURL), slug, progress)
}

func (s *PackService) withRetry(ctx context.Context, fn func(context.Context) error) error {
	return s.retry.Do(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		var hubErr *domain.HubError
		if errors.As(err, &hubErr) && hubErr.Transient {
			return retry.RetryAfter(err, 0)
		}
		return err
	})
}

func (s *PackService) GetPack(name string) (domain.LoadedPack, bool) {
	p, ok := s.reg.Load().packs[name]
	return p, ok
}

func (s *PackService) GetManifest(name string) (domain.PackManifest, bool) {
	m, ok := s.reg.Load().manifests[name]
	return m, ok
}

func (s *PackService) GetConfig(name string) (domain.PackConfig, bool) {
	c, ok := s.reg.Load().configs[name]
	if !ok {
		return domain.PackConfig{}, false
	}
	return c.Clone(), true
}

// ListPacks returns loaded pack names, sorted.
func (s *PackService) ListPacks() []string {
	reg := s.reg.Load()
	names := make([]string, 0, len(reg.packs))
	for name := range reg.packs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *PackService) ListManifests() []domain.PackManifest {
	reg := s.reg.Load()
	out := make([]domain.PackManifest, 0, len(reg.manifests))
	for _, name := range s.ListPacks() {
		if m, ok := reg.manifests[name]; ok {
			out = append(out, m)
		}
	}
	return out
}

// IsEnabled prefers the config flag and falls back to the manifest.
func (s *PackService) IsEnabled(name string) bool {
	reg := s.reg.Load()
	if cfg, ok := reg.configs[name]; ok {
		return cfg.Enabled
	}
	if m, ok := reg.manifests[name]; ok {
		return m.Enabled
	}
	return false
}

func (s *PackService) ListEnabled() []string {
	out := []string{}
	for _, name := range s.ListPacks() {
		if s.IsEnabled(name) {
			out = append(out, name)
		}
	}
	return out
}

// Shortcuts lists every configured shortcut of loaded packs, sorted by name.
func (s *PackService) Shortcuts() []domain.PackShortcut {
	reg := s.reg.Load()
	out := []domain.PackShortcut{}
	for _, pack := range s.ListPacks() {
		cfg, ok := reg.configs[pack]
		if !ok {
			continue
		}
		for _, sc := range cfg.Shortcuts {
			out = append(out, domain.PackShortcut{Pack: pack, Shortcut: sc, Active: sc.Enabled && cfg.Enabled})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Shortcut.Name < out[j].Shortcut.Name })
	return out
}

func (s *PackService) StickerPath(pack, sticker string) (string, bool) {
	if _, ok := s.GetPack(pack); !ok {
		return "", false
	}
	return s.repo.StickerPath(pack, sticker)
}

func (s *PackService) StickerBytes(pack, sticker string) ([]byte, bool) {
	if _, ok := s.GetPack(pack); !ok {
		return nil, false
	}
	return s.repo.StickerBytes(pack, sticker)
}

func (s *PackService) Status() domain.ManagerStatus {
	return domain.ManagerStatus{
		DataDir:      s.dataDir,
		PacksDir:     s.repo.Root(),
		TotalPacks:   len(s.ListPacks()),
		EnabledPacks: len(s.ListEnabled()),
		AutoUpdate:   s.autoUpdate,
		ForceUpdate:  s.forceUpdate,
	}
}

// History reads the event journal when one is configured.
func (s *PackService) History(ctx context.Context, pack string, limit int) ([]domain.PackEvent, error) {
	if s.journal == nil {
		return nil, fmt.Errorf("event journal is not configured")
	}
	return s.journal.Recent(ctx, pack, limit)
}

// UpdatablePacks lists loaded packs that carry an origin url.
func (s *PackService) UpdatablePacks() []string {
	out := []string{}
	for _, name := range s.ListPacks() {
		if _, url, ok := s.originURL(name); ok && url != "" {
			out = append(out, name)
		}
	}
	return out
}
