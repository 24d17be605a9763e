package in

import (
	"context"

	"memestickers/internal/modules/pack/dto"
)

type Usecase interface {
	Reload(ctx context.Context) error
	ListPacks(ctx context.Context) ([]dto.PackOutput, error)
	GetPack(ctx context.Context, name string) (dto.PackOutput, error)
	ListHub(ctx context.Context, refresh bool) ([]dto.HubPackOutput, error)
	HubIndex(ctx context.Context) ([]dto.HubIndexOutput, error)
	Install(ctx context.Context, input dto.InstallInput, progress dto.Progress) (dto.InstallOutput, error)
	InstallFromIndex(ctx context.Context, slug string, progress dto.Progress) (dto.InstallOutput, error)
	Update(ctx context.Context, name string, force bool, progress dto.Progress) (dto.UpdateOutput, error)
	Delete(ctx context.Context, name string) error
	SetEnabled(ctx context.Context, name string, enabled bool) error
	AddShortcut(ctx context.Context, input dto.ShortcutInput) error
	RemoveShortcut(ctx context.Context, pack, name string) error
	Shortcuts(ctx context.Context) ([]dto.ShortcutOutput, error)
	Sticker(ctx context.Context, pack, sticker string) (dto.StickerFile, bool)
	Status(ctx context.Context) dto.StatusOutput
	History(ctx context.Context, pack string, limit int) ([]dto.EventOutput, error)
}
