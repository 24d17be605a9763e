package out_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	packout "memestickers/internal/modules/pack/adapter/out"
	"memestickers/internal/modules/pack/domain"
)

func TestJSONConfigStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data", "config.json")
	store := packout.NewJSONConfigStore(path)
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing file should load empty, got %v %v", empty, err)
	}

	cfg := domain.NewPackConfig(domain.PackManifest{Name: "cats", DisplayName: "Cats", Version: "1.0.0", Enabled: true})
	cfg.Shortcuts = append(cfg.Shortcuts, domain.Shortcut{Name: "cat", Command: "generate cats", Enabled: true})
	if err := store.Save(ctx, map[string]domain.PackConfig{"cats": cfg}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := loaded["cats"]
	if !ok || !got.Enabled || len(got.Shortcuts) != 1 || got.GridSettings == nil || got.GridSettings.Columns != 3 {
		t.Fatalf("unexpected config %+v", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file must not linger")
	}

	if err := store.Save(ctx, map[string]domain.PackConfig{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil || len(loaded) != 0 {
		t.Fatalf("save must overwrite the whole map, got %v %v", loaded, err)
	}
}

func TestJSONConfigStoreCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, "{not json")
	if _, err := packout.NewJSONConfigStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestJSONConfigStoreFillsDefaults(t *testing.T) {
	t.Parallel()
	defaults := domain.DefaultGridSettings()
	wide := defaults
	wide.Columns = 5
	framed := defaults
	framed.BorderColor = "#FF0000"
	framed.BorderWidth = 0

	cases := []struct {
		name        string
		entry       string
		wantEnabled bool
		wantGrid    *domain.GridSettings
	}{
		{name: "bare entry", entry: `{"name":"cats","display_name":"Cats"}`, wantEnabled: true},
		{name: "explicit disable", entry: `{"name":"cats","enabled":false}`, wantEnabled: false},
		{name: "partial grid", entry: `{"name":"cats","grid_settings":{"columns":5}}`, wantEnabled: true, wantGrid: &wide},
		{name: "empty grid", entry: `{"name":"cats","grid_settings":{}}`, wantEnabled: true, wantGrid: &defaults},
		{name: "grid zero kept", entry: `{"name":"cats","grid_settings":{"border_color":"#FF0000","border_width":0}}`, wantEnabled: true, wantGrid: &framed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.json")
			writeFile(t, path, `{"packs":{"cats":`+tc.entry+`}}`)
			loaded, err := packout.NewJSONConfigStore(path).Load(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			got := loaded["cats"]
			if got.Enabled != tc.wantEnabled {
				t.Fatalf("enabled = %v, want %v", got.Enabled, tc.wantEnabled)
			}
			switch {
			case tc.wantGrid == nil && got.GridSettings != nil:
				t.Fatalf("unexpected grid %+v", *got.GridSettings)
			case tc.wantGrid != nil && (got.GridSettings == nil || *got.GridSettings != *tc.wantGrid):
				t.Fatalf("grid = %+v, want %+v", got.GridSettings, *tc.wantGrid)
			}
		})
	}
}

func TestJSONConfigStoreShortcutDefaultsToEnabled(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"packs":{"cats":{"name":"cats","shortcuts":[{"name":"meow","command":"generate cats"},{"name":"hiss","command":"generate cats","enabled":false}]}}}`)
	loaded, err := packout.NewJSONConfigStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := loaded["cats"]
	if meow, ok := cfg.Shortcut("meow"); !ok || !meow.Enabled {
		t.Fatalf("shortcut without flag should be enabled: %+v", cfg.Shortcuts)
	}
	if hiss, ok := cfg.Shortcut("hiss"); !ok || hiss.Enabled {
		t.Fatalf("explicit disable lost: %+v", cfg.Shortcuts)
	}
}
