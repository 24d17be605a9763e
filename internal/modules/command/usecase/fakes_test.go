package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	renderadapter "memestickers/internal/modules/command/adapter/out"
	commanddto "memestickers/internal/modules/command/dto"
	commandout "memestickers/internal/modules/command/port/out"
	"memestickers/internal/modules/command/usecase"
	packdto "memestickers/internal/modules/pack/dto"
	sessionadapter "memestickers/internal/modules/session/adapter/out"
	sessionin "memestickers/internal/modules/session/port/in"
	sessionservice "memestickers/internal/modules/session/service"
	sessionusecase "memestickers/internal/modules/session/usecase"
	"memestickers/internal/platform/clock"
	apperrors "memestickers/internal/platform/errors"
	"memestickers/internal/platform/tx"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// fakePacks is an in-memory pack usecase with two packs: cats (enabled,
// stickers a and b) and dogs (disabled, sticker c).
type fakePacks struct {
	mu        sync.Mutex
	packs     map[string]*packdto.PackOutput
	shortcuts []packdto.ShortcutOutput
	reloads   int
	reloadErr error
	installs  []packdto.InstallInput
	deleted   []string
	update    packdto.UpdateOutput
	events    []packdto.EventOutput
}

func newFakePacks() *fakePacks {
	return &fakePacks{packs: map[string]*packdto.PackOutput{
		"cats": {
			Name: "cats", DisplayName: "Cats", Version: "1.0.0", Enabled: true, StickerCount: 2,
			Stickers: []packdto.StickerOutput{{Name: "a", Path: "a.png"}, {Name: "b", Path: "b.png"}},
		},
		"dogs": {
			Name: "dogs", DisplayName: "Dogs", Version: "0.3", Enabled: false, StickerCount: 1,
			Stickers: []packdto.StickerOutput{{Name: "c", Path: "c.png"}},
		},
	}}
}

func (f *fakePacks) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return f.reloadErr
}

func (f *fakePacks) ListPacks(context.Context) ([]packdto.PackOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]packdto.PackOutput, 0, len(f.packs))
	for _, p := range f.packs {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePacks) GetPack(_ context.Context, name string) (packdto.PackOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packs[name]
	if !ok {
		return packdto.PackOutput{}, fmt.Errorf("%w: pack %s", apperrors.ErrNotFound, name)
	}
	return *p, nil
}

func (f *fakePacks) ListHub(context.Context, bool) ([]packdto.HubPackOutput, error) {
	return []packdto.HubPackOutput{
		{Name: "cats", DisplayName: "Cats", Version: "1.1.0", Author: "mia", Installed: true},
		{Name: "frogs", DisplayName: "Frogs", Version: "2.0.0", Author: "leo"},
	}, nil
}

func (f *fakePacks) HubIndex(context.Context) ([]packdto.HubIndexOutput, error) {
	return nil, nil
}

func (f *fakePacks) Install(_ context.Context, input packdto.InstallInput, progress packdto.Progress) (packdto.InstallOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs = append(f.installs, input)
	name := input.Name
	if input.As != "" {
		name = input.As
	}
	if progress != nil {
		progress("installing " + name)
	}
	f.packs[name] = &packdto.PackOutput{Name: name, DisplayName: name, Version: "1.0.0", Enabled: true, StickerCount: 2}
	return packdto.InstallOutput{Name: name, Version: "1.0.0", Stickers: 2}, nil
}

func (f *fakePacks) InstallFromIndex(ctx context.Context, slug string, progress packdto.Progress) (packdto.InstallOutput, error) {
	return f.Install(ctx, packdto.InstallInput{Name: slug}, progress)
}

func (f *fakePacks) Update(context.Context, string, bool, packdto.Progress) (packdto.UpdateOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update, nil
}

func (f *fakePacks) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.packs[name]; !ok {
		return fmt.Errorf("%w: pack %s", apperrors.ErrNotFound, name)
	}
	delete(f.packs, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakePacks) SetEnabled(_ context.Context, name string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packs[name]
	if !ok {
		return fmt.Errorf("%w: pack %s", apperrors.ErrNotFound, name)
	}
	p.Enabled = enabled
	return nil
}

func (f *fakePacks) AddShortcut(_ context.Context, input packdto.ShortcutInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortcuts = append(f.shortcuts, packdto.ShortcutOutput{
		Pack: input.Pack, Name: strings.ToLower(input.Name), Command: input.Command, Description: input.Description,
	})
	return nil
}

func (f *fakePacks) RemoveShortcut(_ context.Context, pack, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.shortcuts[:0]
	for _, s := range f.shortcuts {
		if s.Pack != pack || s.Name != name {
			kept = append(kept, s)
		}
	}
	f.shortcuts = kept
	return nil
}

func (f *fakePacks) Shortcuts(context.Context) ([]packdto.ShortcutOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]packdto.ShortcutOutput, 0, len(f.shortcuts))
	for _, s := range f.shortcuts {
		p, ok := f.packs[s.Pack]
		s.Enabled = ok && p.Enabled
		out = append(out, s)
	}
	return out, nil
}

func (f *fakePacks) Sticker(_ context.Context, pack, sticker string) (packdto.StickerFile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packs[pack]
	if !ok {
		return packdto.StickerFile{}, false
	}
	for _, s := range p.Stickers {
		if s.Name == sticker {
			return packdto.StickerFile{Pack: pack, Sticker: sticker, Path: s.Path, Bytes: pngHeader}, true
		}
	}
	return packdto.StickerFile{}, false
}

func (f *fakePacks) Status(context.Context) packdto.StatusOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	enabled := 0
	for _, p := range f.packs {
		if p.Enabled {
			enabled++
		}
	}
	return packdto.StatusOutput{DataDir: "/data", PacksDir: "/data/packs", TotalPacks: len(f.packs), EnabledPacks: enabled, AutoUpdate: true}
}

func (f *fakePacks) History(_ context.Context, pack string, limit int) ([]packdto.EventOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []packdto.EventOutput
	for _, e := range f.events {
		if pack == "" || e.PackName == pack {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	commands []string
}

func (m *recordingMetrics) IncPackEvent(string, string) {}
func (m *recordingMetrics) SetPacksLoaded(int)          {}

func (m *recordingMetrics) IncCommand(command, outcome string) {
	m.mu.Lock()
	m.commands = append(m.commands, command+"/"+outcome)
	m.mu.Unlock()
}

func (m *recordingMetrics) ObserveCommandDuration(string, float64) {}

func (m *recordingMetrics) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return ""
	}
	return m.commands[len(m.commands)-1]
}

type harness struct {
	router   *usecase.Router
	packs    *fakePacks
	sessions sessionin.Usecase
	metrics  *recordingMetrics
}

type recordingRenderer struct {
	mu       sync.Mutex
	requests []commandout.RenderRequest
}

func (r *recordingRenderer) Render(_ context.Context, request commandout.RenderRequest) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, request)
	return request.Source, nil
}

func newHarness(t *testing.T, isAdmin func(string) bool) *harness {
	t.Helper()
	return newHarnessWith(t, func(o *usecase.Options) { o.IsAdmin = isAdmin })
}

func newHarnessWith(t *testing.T, configure func(*usecase.Options)) *harness {
	t.Helper()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clk := clock.Func(func() time.Time { return now })
	sessions := sessionusecase.NewInteractor(
		sessionservice.NewSessionService(clk, sessionadapter.NewMemorySessionRepository(), time.Minute, nil),
	)
	packs := newFakePacks()
	m := &recordingMetrics{}
	opts := usecase.Options{
		Packs:    packs,
		Sessions: sessions,
		Renderer: renderadapter.NewPassthroughRenderer(),
		Tx:       tx.NewKeyedManager(),
		Metrics:  m,
		Clock:    clk,
		FontSize: 48,
	}
	configure(&opts)
	r := usecase.NewRouter(opts)
	return &harness{router: r, packs: packs, sessions: sessions, metrics: m}
}

func (h *harness) send(t *testing.T, user, text string) commanddto.Response {
	t.Helper()
	resp, err := h.router.Handle(context.Background(), commanddto.Request{UserID: user, Text: text})
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return resp
}

func texts(resp commanddto.Response) string {
	var parts []string
	for _, r := range resp.Replies {
		if r.Kind == "text" {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func images(resp commanddto.Response) []commanddto.Reply {
	var out []commanddto.Reply
	for _, r := range resp.Replies {
		if r.Kind == "image" {
			out = append(out, r)
		}
	}
	return out
}

func mustContain(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Fatalf("reply %q does not contain %q", got, want)
		}
	}
}
