package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	packadapter "memestickers/internal/modules/pack/adapter/out"
	"memestickers/internal/modules/pack/domain"
	"memestickers/internal/modules/pack/service"
	apperrors "memestickers/internal/platform/errors"
)

func TestReloadIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	writeLocalPack(t, h.packsDir, "cats", `{"name":"cats","display_name":"Cats"}`, "b.png", "a.jpg")
	writeLocalPack(t, h.packsDir, "dogs", `{"name":"dogs","display_name":"Dogs","version":"2.1"}`, "woof.gif")

	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("first reload: %v", err)
	}
	firstNames := h.svc.ListPacks()
	firstManifests := h.svc.ListManifests()
	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if !reflect.DeepEqual(firstNames, h.svc.ListPacks()) {
		t.Fatalf("pack names changed across reloads: %v vs %v", firstNames, h.svc.ListPacks())
	}
	if !reflect.DeepEqual(firstManifests, h.svc.ListManifests()) {
		t.Fatalf("manifests changed across reloads")
	}
	if !reflect.DeepEqual(firstNames, []string{"cats", "dogs"}) {
		t.Fatalf("unexpected packs: %v", firstNames)
	}
	cats, _ := h.svc.GetManifest("cats")
	if got := cats.StickerNames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected sorted stickers [a b], got %v", got)
	}
}

func TestReloadIsolatesBrokenPack(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	writeLocalPack(t, h.packsDir, "cats", `{"name":"cats","display_name":"Cats"}`, "a.png")
	writeLocalPack(t, h.packsDir, "broken", `{"name":`, "a.png")
	writeLocalPack(t, h.packsDir, "dogs", `{"name":"dogs","display_name":"Dogs"}`, "a.png")

	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := h.svc.ListPacks(); !reflect.DeepEqual(got, []string{"cats", "dogs"}) {
		t.Fatalf("expected healthy packs only, got %v", got)
	}
	if n := h.events.count(domain.StateError); n != 1 {
		t.Fatalf("expected exactly one error event, got %d", n)
	}
	if got := h.events.states("broken"); !reflect.DeepEqual(got, []domain.PackState{domain.StateLoading, domain.StateError}) {
		t.Fatalf("unexpected broken pack events: %v", got)
	}
	if _, ok := h.svc.GetPack("broken"); ok {
		t.Fatalf("broken pack must not be registered")
	}
}

func TestReloadSynthesizesMissingConfigs(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	writeLocalPack(t, h.packsDir, "cats", `{"name":"cats","display_name":"Cats","enabled":false}`, "a.png")
	stored := `{"packs":{"dogs":{"name":"dogs","enabled":true,"shortcuts":[]},"odd":{"name":"other","enabled":true}}}`
	if err := os.WriteFile(filepath.Join(h.dataDir, "config.json"), []byte(stored), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	cfg, ok := h.svc.GetConfig("cats")
	if !ok {
		t.Fatalf("expected synthesized config for cats")
	}
	if cfg.Enabled || cfg.DisplayName != "Cats" || cfg.GridSettings == nil {
		t.Fatalf("unexpected synthesized config: %+v", cfg)
	}
	if _, ok := h.svc.GetConfig("dogs"); !ok {
		t.Fatalf("config of an unloaded pack should be kept")
	}
	if _, ok := h.svc.GetConfig("odd"); ok {
		t.Fatalf("mismatched config entry should be dropped")
	}
	if got := h.events.states("odd"); !reflect.DeepEqual(got, []domain.PackState{domain.StateError}) {
		t.Fatalf("expected an error event for the mismatched entry, got %v", got)
	}
	if h.svc.IsEnabled("cats") {
		t.Fatalf("cats is disabled in its manifest")
	}
}

func TestInstallListDeleteRoundTrip(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "cats", "1.0.0", nil)
	var messages []string
	progress := func(m string) { messages = append(messages, m) }

	manifest, err := h.svc.InstallByName(t.Context(), "cats", "", true, progress)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if manifest.Name != "cats" || len(manifest.Stickers) != 2 {
		t.Fatalf("unexpected manifest: %+v", manifest)
	}
	if len(messages) == 0 {
		t.Fatalf("expected progress messages")
	}
	if got := h.events.states("cats"); !reflect.DeepEqual(got, []domain.PackState{domain.StateInstalling, domain.StateInstalled}) {
		t.Fatalf("unexpected install events: %v", got)
	}
	if _, err := os.Stat(filepath.Join(h.dataDir, ".temp")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp dir should be removed after install, stat err=%v", err)
	}

	cfg, ok := h.svc.GetConfig("cats")
	if !ok || !cfg.Enabled || cfg.URL == "" || cfg.Version != "1.0.0" {
		t.Fatalf("expected default config with origin url, got %+v ok=%v", cfg, ok)
	}
	persisted, err := packadapter.NewJSONConfigStore(filepath.Join(h.dataDir, "config.json")).Load(t.Context())
	if err != nil {
		t.Fatalf("load persisted config: %v", err)
	}
	if _, ok := persisted["cats"]; !ok {
		t.Fatalf("config not persisted: %v", persisted)
	}
	if payload, ok := h.svc.StickerBytes("cats", "a"); !ok || string(payload) != "a-1.0.0" {
		t.Fatalf("unexpected sticker bytes %q ok=%v", payload, ok)
	}

	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := h.svc.ListPacks(); !reflect.DeepEqual(got, []string{"cats"}) {
		t.Fatalf("unexpected packs after reload: %v", got)
	}

	h.events.reset()
	if err := h.svc.DeletePack(t.Context(), "cats"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := h.events.states("cats"); !reflect.DeepEqual(got, []domain.PackState{domain.StateDeleting, domain.StateDeleted}) {
		t.Fatalf("unexpected delete events: %v", got)
	}
	if len(h.svc.ListPacks()) != 0 {
		t.Fatalf("expected no packs after delete")
	}
	if _, ok := h.svc.GetConfig("cats"); ok {
		t.Fatalf("config should be purged")
	}
	if _, err := os.Stat(filepath.Join(h.packsDir, "cats")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pack dir should be removed, stat err=%v", err)
	}
	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload after delete: %v", err)
	}
	if len(h.svc.ListPacks()) != 0 {
		t.Fatalf("deleted pack came back after reload")
	}
}

func TestInstallUnderAnotherName(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "cats", "1.0.0", nil)

	manifest, err := h.svc.InstallByName(t.Context(), "cats", "kittens", false, nil)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if manifest.Name != "kittens" {
		t.Fatalf("expected manifest renamed to kittens, got %q", manifest.Name)
	}
	if _, ok := h.svc.GetPack("kittens"); !ok {
		t.Fatalf("kittens not registered")
	}
}

func TestInstallUnknownPackFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.svc.InstallByName(t.Context(), "ghost", "", true, nil)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInstallInvalidArchiveReportsError(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "empty", "1.0.0", map[string]string{
		"empty/metadata.json": `{"name":"empty","display_name":"Empty"}`,
	})

	_, err := h.svc.InstallByName(t.Context(), "empty", "", true, nil)
	var managerErr *domain.ManagerError
	if !errors.As(err, &managerErr) || managerErr.Op != "install pack" {
		t.Fatalf("expected install manager error, got %v", err)
	}
	if got := h.events.states("empty"); !reflect.DeepEqual(got, []domain.PackState{domain.StateInstalling, domain.StateError}) {
		t.Fatalf("unexpected events: %v", got)
	}
	if _, err := os.Stat(filepath.Join(h.packsDir, "empty")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failed install must leave no pack dir, stat err=%v", err)
	}
}

func TestFetchHubPacksRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "cats", "1.0.0", nil)
	h.hub.failNext(2)

	packs, err := h.svc.FetchHubPacks(t.Context(), true)
	if err != nil {
		t.Fatalf("fetch with retries: %v", err)
	}
	if len(packs) != 1 || packs[0].Name != "cats" {
		t.Fatalf("unexpected packs: %+v", packs)
	}

	h.hub.failNext(3)
	_, err = h.svc.FetchHubPacks(t.Context(), true)
	var hubErr *domain.HubError
	if !errors.As(err, &hubErr) || hubErr.Status != 503 {
		t.Fatalf("expected hub 503 once attempts run out, got %v", err)
	}
}

func TestUpdateReplacesPack(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "cats", "1.0.0", nil)
	if _, err := h.svc.InstallByName(t.Context(), "cats", "", true, nil); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := h.svc.AddShortcut(t.Context(), "cats", domain.Shortcut{Name: "meow", Command: "cats a", Enabled: true}); err != nil {
		t.Fatalf("add shortcut: %v", err)
	}
	h.hub.publish(t, "cats", "1.1.0", nil)
	h.events.reset()

	result, err := h.svc.UpdatePack(t.Context(), "cats", false, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !result.Changed || result.OldVersion != "1.0.0" || result.NewVersion != "1.1.0" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := h.events.states("cats"); !reflect.DeepEqual(got, []domain.PackState{domain.StateUpdating, domain.StateUpdated}) {
		t.Fatalf("unexpected update events: %v", got)
	}
	if payload, _ := h.svc.StickerBytes("cats", "a"); string(payload) != "a-1.1.0" {
		t.Fatalf("sticker not replaced: %q", payload)
	}
	cfg, _ := h.svc.GetConfig("cats")
	if cfg.Version != "1.1.0" {
		t.Fatalf("config version not bumped: %+v", cfg)
	}
	if _, ok := cfg.Shortcut("meow"); !ok {
		t.Fatalf("update dropped user shortcut")
	}
	assertNoBackups(t, h.packsDir)
}

func TestUpdateWhenCurrentIsNoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "cats", "1.0.0", nil)
	if _, err := h.svc.InstallByName(t.Context(), "cats", "", true, nil); err != nil {
		t.Fatalf("install: %v", err)
	}
	h.events.reset()

	result, err := h.svc.UpdatePack(t.Context(), "cats", false, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.Changed {
		t.Fatalf("expected no change, got %+v", result)
	}
	if got := h.events.states("cats"); !reflect.DeepEqual(got, []domain.PackState{domain.StateUpdating, domain.StateUpdated}) {
		t.Fatalf("unexpected events: %v", got)
	}

	forced, err := h.svc.UpdatePack(t.Context(), "cats", true, nil)
	if err != nil {
		t.Fatalf("forced update: %v", err)
	}
	if !forced.Changed {
		t.Fatalf("forced update should reinstall")
	}
}

func TestUpdateRestoresPackOnFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "cats", "1.0.0", nil)
	if _, err := h.svc.InstallByName(t.Context(), "cats", "", true, nil); err != nil {
		t.Fatalf("install: %v", err)
	}
	h.hub.publish(t, "cats", "2.0.0", map[string]string{
		"cats/metadata.json": `{"name":"cats","display_name":"Cats","version":"2.0.0"}`,
	})
	h.events.reset()

	_, err := h.svc.UpdatePack(t.Context(), "cats", false, nil)
	if err == nil {
		t.Fatalf("expected update failure")
	}
	if got := h.events.states("cats"); !reflect.DeepEqual(got, []domain.PackState{domain.StateUpdating, domain.StateError}) {
		t.Fatalf("unexpected events: %v", got)
	}
	manifest, ok := h.svc.GetManifest("cats")
	if !ok || manifest.Version != "1.0.0" {
		t.Fatalf("registry should keep the old version, got %+v ok=%v", manifest, ok)
	}
	if payload, ok := h.svc.StickerBytes("cats", "a"); !ok || string(payload) != "a-1.0.0" {
		t.Fatalf("old pack not restored on disk: %q ok=%v", payload, ok)
	}
	assertNoBackups(t, h.packsDir)
}

func TestUpdateWithoutOriginURL(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	writeLocalPack(t, h.packsDir, "local", `{"name":"local","display_name":"Local"}`, "a.png")
	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	h.events.reset()

	_, err := h.svc.UpdatePack(t.Context(), "local", false, nil)
	if !errors.Is(err, domain.ErrNoUpdateURL) {
		t.Fatalf("expected no update url, got %v", err)
	}
	if got := h.events.states("local"); !reflect.DeepEqual(got, []domain.PackState{domain.StateUpdating, domain.StateError}) {
		t.Fatalf("unexpected events: %v", got)
	}
	if len(h.svc.UpdatablePacks()) != 0 {
		t.Fatalf("local pack must not be updatable")
	}

	_, err = h.svc.UpdatePack(t.Context(), "ghost", false, nil)
	if !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected pack not found, got %v", err)
	}
}

func TestListenerFailuresDoNotAbortOperations(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.svc.OnPackStateChange(domain.ListenerFunc(func(context.Context, domain.PackEvent) error {
		panic("listener exploded")
	}))
	h.svc.OnPackStateChange(domain.ListenerFunc(func(context.Context, domain.PackEvent) error {
		return errors.New("listener failed")
	}))
	after := &recordingListener{}
	h.svc.OnPackStateChange(after)
	writeLocalPack(t, h.packsDir, "cats", `{"name":"cats","display_name":"Cats"}`, "a.png")

	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := h.svc.GetPack("cats"); !ok {
		t.Fatalf("pack not loaded")
	}
	if got := after.states("cats"); !reflect.DeepEqual(got, []domain.PackState{domain.StateLoading, domain.StateLoaded}) {
		t.Fatalf("later listener missed events: %v", got)
	}
}

func TestShortcutsAndEnable(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	writeLocalPack(t, h.packsDir, "cats", `{"name":"cats","display_name":"Cats"}`, "a.png")
	writeLocalPack(t, h.packsDir, "dogs", `{"name":"dogs","display_name":"Dogs"}`, "a.png")
	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	ctx := t.Context()

	if err := h.svc.AddShortcut(ctx, "cats", domain.Shortcut{Name: "meow", Command: "cats a", Enabled: true}); err != nil {
		t.Fatalf("add shortcut: %v", err)
	}
	if err := h.svc.AddShortcut(ctx, "dogs", domain.Shortcut{Name: "meow", Command: "dogs a", Enabled: true}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected duplicate shortcut rejection, got %v", err)
	}
	if err := h.svc.AddShortcut(ctx, "dogs", domain.Shortcut{Name: "two words", Command: "x"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid shortcut rejection, got %v", err)
	}
	if err := h.svc.AddShortcut(ctx, "ghost", domain.Shortcut{Name: "boo", Command: "x"}); !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected pack not found, got %v", err)
	}
	if err := h.svc.AddShortcut(ctx, "cats", domain.Shortcut{Name: "meow", Command: "cats b", Enabled: true}); err != nil {
		t.Fatalf("replace shortcut: %v", err)
	}
	shortcuts := h.svc.Shortcuts()
	if len(shortcuts) != 1 || shortcuts[0].Shortcut.Command != "cats b" || !shortcuts[0].Active {
		t.Fatalf("unexpected shortcuts: %+v", shortcuts)
	}

	if err := h.svc.SetEnabled(ctx, "cats", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if h.svc.IsEnabled("cats") {
		t.Fatalf("cats should be disabled")
	}
	if !reflect.DeepEqual(h.svc.ListEnabled(), []string{"dogs"}) {
		t.Fatalf("unexpected enabled packs: %v", h.svc.ListEnabled())
	}
	if h.svc.Shortcuts()[0].Active {
		t.Fatalf("shortcut of a disabled pack must be inactive")
	}
	if status := h.svc.Status(); status.TotalPacks != 2 || status.EnabledPacks != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := h.svc.RemoveShortcut(ctx, "cats", "meow"); err != nil {
		t.Fatalf("remove shortcut: %v", err)
	}
	if err := h.svc.RemoveShortcut(ctx, "cats", "meow"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}

	// Config changes survive a reload.
	if err := h.svc.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if h.svc.IsEnabled("cats") || len(h.svc.Shortcuts()) != 0 {
		t.Fatalf("config changes lost across reload")
	}
}

func TestInstallFromHubUsesReleaseAsset(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	index, _ := json.Marshal(map[string]any{"packs": []map[string]any{
		{"slug": "cats", "source": map[string]string{"type": "github", "owner": "acme", "repo": "stickers"}},
	}})
	h.hub.serveFile("/index.json", index)
	h.hub.serveFile("/raw/acme/stickers/main/metadata.json", []byte(`{"name":"cats","display_name":"Cats","version":"2.0.0"}`))
	h.hub.serveFile("/releases/acme/stickers/v2.0.0/cats.zip", zipBytes(t, map[string]string{
		"cats/metadata.json":  `{"name":"cats","display_name":"Cats","version":"2.0.0"}`,
		"cats/stickers/a.png": "a",
	}))

	refs, err := h.svc.HubIndex(t.Context())
	if err != nil || len(refs) != 1 || refs[0].Source.Branch != "main" {
		t.Fatalf("unexpected index %+v err=%v", refs, err)
	}
	manifest, err := h.svc.InstallFromHub(t.Context(), "cats", nil)
	if err != nil {
		t.Fatalf("install from hub: %v", err)
	}
	if manifest.Version != "2.0.0" {
		t.Fatalf("unexpected version %q", manifest.Version)
	}
	cfg, _ := h.svc.GetConfig("cats")
	if cfg.URL != h.hub.srv.URL+"/releases/acme/stickers/v2.0.0/cats.zip" {
		t.Fatalf("unexpected origin url %q", cfg.URL)
	}

	if _, err := h.svc.InstallFromHub(t.Context(), "dogs", nil); !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected not found for unknown slug, got %v", err)
	}
}

func TestHistoryWithoutJournal(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	if _, err := h.svc.History(t.Context(), "", 10); err == nil {
		t.Fatalf("expected error without a journal")
	}
}

func TestHistoryReadsJournal(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()
	packsDir := filepath.Join(dataDir, "packs")
	journal, err := packadapter.NewSQLiteEventJournal(filepath.Join(dataDir, "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })
	svc := service.NewPackService(service.Options{
		Repo:    packadapter.NewFSPackRepository(packsDir),
		Configs: packadapter.NewJSONConfigStore(filepath.Join(dataDir, "config.json")),
		Journal: journal,
	})
	svc.OnPackStateChange(journal)
	writeLocalPack(t, packsDir, "cats", `{"name":"cats","display_name":"Cats"}`, "a.png")

	if err := svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	events, err := svc.History(t.Context(), "cats", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected loading and loaded events, got %+v", events)
	}
	states := map[domain.PackState]bool{}
	for _, e := range events {
		states[e.State] = true
	}
	if !states[domain.StateLoading] || !states[domain.StateLoaded] {
		t.Fatalf("unexpected states: %+v", events)
	}
}

func assertNoBackups(t *testing.T, packsDir string) {
	t.Helper()
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		t.Fatalf("read packs dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("leftover hidden dir %s", e.Name())
		}
	}
}

func TestDeleteWaitsForRunningUpdate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.hub.publish(t, "cats", "1.0.0", nil)
	if _, err := h.svc.InstallByName(t.Context(), "cats", "", true, nil); err != nil {
		t.Fatalf("install: %v", err)
	}
	h.hub.publish(t, "cats", "1.1.0", nil)
	h.events.reset()

	deleted := make(chan error, 1)
	var once sync.Once
	progress := func(string) {
		once.Do(func() {
			go func() { deleted <- h.svc.DeletePack(context.Background(), "cats") }()
			select {
			case err := <-deleted:
				deleted <- err
			case <-time.After(100 * time.Millisecond):
			}
		})
	}
	if _, err := h.svc.UpdatePack(t.Context(), "cats", false, progress); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := <-deleted; err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []domain.PackState{domain.StateUpdating, domain.StateUpdated, domain.StateDeleting, domain.StateDeleted}
	if got := h.events.states("cats"); !reflect.DeepEqual(got, want) {
		t.Fatalf("operations interleaved: %v", got)
	}
	if _, ok := h.svc.GetPack("cats"); ok {
		t.Fatalf("deleted pack is still registered")
	}
	if _, err := os.Stat(filepath.Join(h.packsDir, "cats")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("deleted pack is back on disk, stat err=%v", err)
	}
}

func TestInstallDuringReloadIsKept(t *testing.T) {
	t.Parallel()
	var repo *pausingRepo
	h := newHarnessWith(t, func(o *service.Options) {
		repo = &pausingRepo{PackRepository: o.Repo}
		o.Repo = repo
	})
	writeLocalPack(t, h.packsDir, "cats", `{"name":"cats","display_name":"Cats"}`, "a.png")
	h.hub.publish(t, "dogs", "1.0.0", nil)

	installed := make(chan error, 1)
	var once sync.Once
	repo.onList = func() {
		once.Do(func() {
			go func() {
				_, err := h.svc.InstallByName(context.Background(), "dogs", "", true, nil)
				installed <- err
			}()
			select {
			case err := <-installed:
				installed <- err
			case <-time.After(200 * time.Millisecond):
			}
		})
	}
	if err := h.svc.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := <-installed; err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := h.svc.ListPacks(); !reflect.DeepEqual(got, []string{"cats", "dogs"}) {
		t.Fatalf("install lost to a concurrent reload: %v", got)
	}
	if _, ok := h.svc.GetConfig("dogs"); !ok {
		t.Fatalf("dogs config missing")
	}
}

func TestConcurrentOperationsOnDifferentPacks(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	names := []string{"cats", "dogs", "owls", "frogs"}
	for _, name := range names {
		h.hub.publish(t, name, "1.0.0", nil)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*len(names))
	for _, name := range names {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := h.svc.InstallByName(context.Background(), name, "", true, nil)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- h.svc.Reload(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent operation: %v", err)
		}
	}
	if got := h.svc.ListPacks(); !reflect.DeepEqual(got, []string{"cats", "dogs", "frogs", "owls"}) {
		t.Fatalf("unexpected packs: %v", got)
	}
	persisted, err := packadapter.NewJSONConfigStore(filepath.Join(h.dataDir, "config.json")).Load(t.Context())
	if err != nil {
		t.Fatalf("load persisted config: %v", err)
	}
	if len(persisted) != len(names) {
		t.Fatalf("persisted configs out of step: %d entries", len(persisted))
	}
}

func TestFailedReinstallUnregistersVanishedPack(t *testing.T) {
	t.Parallel()
	var updater *vanishingUpdater
	h := newHarnessWith(t, func(o *service.Options) {
		updater = &vanishingUpdater{Updater: o.Updater}
		o.Updater = updater
	})
	h.hub.publish(t, "cats", "1.0.0", nil)
	if _, err := h.svc.InstallByName(t.Context(), "cats", "", true, nil); err != nil {
		t.Fatalf("install: %v", err)
	}
	updater.armed.Store(true)

	if _, err := h.svc.InstallByName(t.Context(), "cats", "", true, nil); err == nil {
		t.Fatalf("expected reinstall failure")
	}
	if _, ok := h.svc.GetPack("cats"); ok {
		t.Fatalf("pack without a directory is still registered")
	}
	if _, ok := h.svc.StickerBytes("cats", "a"); ok {
		t.Fatalf("stickers of a vanished pack are still served")
	}
	if len(h.svc.ListPacks()) != 0 {
		t.Fatalf("unexpected packs: %v", h.svc.ListPacks())
	}
}
