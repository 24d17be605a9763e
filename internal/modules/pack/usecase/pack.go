package usecase

import (
	"context"
	"fmt"

	"memestickers/internal/modules/pack/domain"
	"memestickers/internal/modules/pack/dto"
	packin "memestickers/internal/modules/pack/port/in"
	"memestickers/internal/modules/pack/service"
)

type Interactor struct {
	svc *service.PackService
}

func NewInteractor(svc *service.PackService) packin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Reload(ctx context.Context) error {
	return i.svc.Reload(ctx)
}

func (i *Interactor) ListPacks(_ context.Context) ([]dto.PackOutput, error) {
	manifests := i.svc.ListManifests()
	out := make([]dto.PackOutput, 0, len(manifests))
	for _, m := range manifests {
		out = append(out, i.packOutput(m))
	}
	return out, nil
}

func (i *Interactor) GetPack(_ context.Context, name string) (dto.PackOutput, error) {
	m, ok := i.svc.GetManifest(name)
	if !ok {
		return dto.PackOutput{}, fmt.Errorf("%w: %s", domain.ErrPackNotFound, name)
	}
	return i.packOutput(m), nil
}

func (i *Interactor) packOutput(m domain.PackManifest) dto.PackOutput {
	out := dto.PackOutput{
		Name:         m.Name,
		DisplayName:  m.DisplayName,
		Description:  m.Description,
		Version:      m.Version,
		Author:       m.Author,
		Enabled:      i.svc.IsEnabled(m.Name),
		URL:          m.URL,
		StickerCount: len(m.Stickers),
		Stickers:     make([]dto.StickerOutput, 0, len(m.Stickers)),
		Shortcuts:    []dto.ShortcutOutput{},
	}
	for _, s := range m.Stickers {
		out.Stickers = append(out.Stickers, dto.StickerOutput{Name: s.Name, Path: s.Path, Source: string(s.Source)})
	}
	if cfg, ok := i.svc.GetConfig(m.Name); ok {
		if out.URL == "" {
			out.URL = cfg.URL
		}
		for _, sc := range cfg.Shortcuts {
			out.Shortcuts = append(out.Shortcuts, shortcutOutput(domain.PackShortcut{Pack: m.Name, Shortcut: sc, Active: sc.Enabled && cfg.Enabled}))
		}
	}
	return out
}

func (i *Interactor) ListHub(ctx context.Context, refresh bool) ([]dto.HubPackOutput, error) {
	packs, err := i.svc.FetchHubPacks(ctx, refresh)
	if err != nil {
		return nil, err
	}
	out := make([]dto.HubPackOutput, 0, len(packs))
	for _, p := range packs {
		_, installed := i.svc.GetPack(p.Name)
		out = append(out, dto.HubPackOutput{
			Name:        p.Name,
			DisplayName: p.Label(),
			Description: p.Description,
			Version:     p.Version,
			Author:      p.Author,
			URL:         p.URL,
			Size:        p.Size,
			Downloads:   p.Downloads,
			Installed:   installed,
			Installable: p.Validate() == nil,
		})
	}
	return out, nil
}

func (i *Interactor) HubIndex(ctx context.Context) ([]dto.HubIndexOutput, error) {
	refs, err := i.svc.HubIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.HubIndexOutput, 0, len(refs))
	for _, ref := range refs {
		out = append(out, dto.HubIndexOutput{
			Slug:   ref.Slug,
			Owner:  ref.Source.Owner,
			Repo:   ref.Source.Repo,
			Branch: ref.Source.Branch,
			Path:   ref.Source.Path,
		})
	}
	return out, nil
}

func (i *Interactor) Install(ctx context.Context, input dto.InstallInput, progress dto.Progress) (dto.InstallOutput, error) {
	m, err := i.svc.InstallByName(ctx, input.Name, input.As, input.Refresh, domain.ProgressFunc(progress))
	if err != nil {
		return dto.InstallOutput{}, err
	}
	return dto.InstallOutput{Name: m.Name, Version: m.Version, Stickers: len(m.Stickers)}, nil
}

func (i *Interactor) InstallFromIndex(ctx context.Context, slug string, progress dto.Progress) (dto.InstallOutput, error) {
	m, err := i.svc.InstallFromHub(ctx, slug, domain.ProgressFunc(progress))
	if err != nil {
		return dto.InstallOutput{}, err
	}
	return dto.InstallOutput{Name: m.Name, Version: m.Version, Stickers: len(m.Stickers)}, nil
}

func (i *Interactor) Update(ctx context.Context, name string, force bool, progress dto.Progress) (dto.UpdateOutput, error) {
	result, err := i.svc.UpdatePack(ctx, name, force, domain.ProgressFunc(progress))
	if err != nil {
		return dto.UpdateOutput{}, err
	}
	return dto.UpdateOutput{Name: result.Pack, Updated: result.Changed, OldVersion: result.OldVersion, NewVersion: result.NewVersion}, nil
}

func (i *Interactor) Delete(ctx context.Context, name string) error {
	return i.svc.DeletePack(ctx, name)
}

func (i *Interactor) SetEnabled(ctx context.Context, name string, enabled bool) error {
	return i.svc.SetEnabled(ctx, name, enabled)
}

func (i *Interactor) AddShortcut(ctx context.Context, input dto.ShortcutInput) error {
	return i.svc.AddShortcut(ctx, input.Pack, domain.Shortcut{
		Name:        input.Name,
		Command:     input.Command,
		Description: input.Description,
		Enabled:     true,
	})
}

func (i *Interactor) RemoveShortcut(ctx context.Context, pack, name string) error {
	return i.svc.RemoveShortcut(ctx, pack, name)
}

func (i *Interactor) Shortcuts(_ context.Context) ([]dto.ShortcutOutput, error) {
	shortcuts := i.svc.Shortcuts()
	out := make([]dto.ShortcutOutput, 0, len(shortcuts))
	for _, sc := range shortcuts {
		out = append(out, shortcutOutput(sc))
	}
	return out, nil
}

func shortcutOutput(sc domain.PackShortcut) dto.ShortcutOutput {
	return dto.ShortcutOutput{
		Pack:        sc.Pack,
		Name:        sc.Shortcut.Name,
		Command:     sc.Shortcut.Command,
		Description: sc.Shortcut.Description,
		Enabled:     sc.Active,
	}
}

func (i *Interactor) Sticker(_ context.Context, pack, sticker string) (dto.StickerFile, bool) {
	path, ok := i.svc.StickerPath(pack, sticker)
	if !ok {
		return dto.StickerFile{}, false
	}
	payload, ok := i.svc.StickerBytes(pack, sticker)
	if !ok {
		return dto.StickerFile{}, false
	}
	return dto.StickerFile{Pack: pack, Sticker: sticker, Path: path, Bytes: payload}, true
}

func (i *Interactor) Status(_ context.Context) dto.StatusOutput {
	st := i.svc.Status()
	return dto.StatusOutput{
		DataDir:      st.DataDir,
		PacksDir:     st.PacksDir,
		TotalPacks:   st.TotalPacks,
		EnabledPacks: st.EnabledPacks,
		AutoUpdate:   st.AutoUpdate,
		ForceUpdate:  st.ForceUpdate,
	}
}

func (i *Interactor) History(ctx context.Context, pack string, limit int) ([]dto.EventOutput, error) {
	events, err := i.svc.History(ctx, pack, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EventOutput, 0, len(events))
	for _, e := range events {
		out = append(out, dto.EventOutput{ID: e.ID, PackName: e.PackName, State: string(e.State), Error: e.Error, At: e.At})
	}
	return out, nil
}
