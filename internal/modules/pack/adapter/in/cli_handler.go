package in

import (
	"context"

	"memestickers/internal/modules/pack/dto"
	packin "memestickers/internal/modules/pack/port/in"
)

type CLIHandler struct {
	usecase packin.Usecase
}

func NewCLIHandler(usecase packin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Reload(ctx context.Context) error {
	return h.usecase.Reload(ctx)
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PackOutput, error) {
	return h.usecase.ListPacks(ctx)
}

func (h CLIHandler) Show(ctx context.Context, name string) (dto.PackOutput, error) {
	return h.usecase.GetPack(ctx, name)
}

func (h CLIHandler) Hub(ctx context.Context, refresh bool) ([]dto.HubPackOutput, error) {
	return h.usecase.ListHub(ctx, refresh)
}

func (h CLIHandler) Index(ctx context.Context) ([]dto.HubIndexOutput, error) {
	return h.usecase.HubIndex(ctx)
}

func (h CLIHandler) Install(ctx context.Context, name, as string, refresh bool, progress dto.Progress) (dto.InstallOutput, error) {
	return h.usecase.Install(ctx, dto.InstallInput{Name: name, As: as, Refresh: refresh}, progress)
}

func (h CLIHandler) InstallFromIndex(ctx context.Context, slug string, progress dto.Progress) (dto.InstallOutput, error) {
	return h.usecase.InstallFromIndex(ctx, slug, progress)
}

func (h CLIHandler) Update(ctx context.Context, name string, force bool, progress dto.Progress) (dto.UpdateOutput, error) {
	return h.usecase.Update(ctx, name, force, progress)
}

func (h CLIHandler) Delete(ctx context.Context, name string) error {
	return h.usecase.Delete(ctx, name)
}

func (h CLIHandler) SetEnabled(ctx context.Context, name string, enabled bool) error {
	return h.usecase.SetEnabled(ctx, name, enabled)
}

func (h CLIHandler) AddShortcut(ctx context.Context, pack, name, command, description string) error {
	return h.usecase.AddShortcut(ctx, dto.ShortcutInput{Pack: pack, Name: name, Command: command, Description: description})
}

func (h CLIHandler) RemoveShortcut(ctx context.Context, pack, name string) error {
	return h.usecase.RemoveShortcut(ctx, pack, name)
}

func (h CLIHandler) Shortcuts(ctx context.Context) ([]dto.ShortcutOutput, error) {
	return h.usecase.Shortcuts(ctx)
}

func (h CLIHandler) Status(ctx context.Context) dto.StatusOutput {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) History(ctx context.Context, pack string, limit int) ([]dto.EventOutput, error) {
	return h.usecase.History(ctx, pack, limit)
}
