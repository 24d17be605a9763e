package out

import (
	"context"

	"memestickers/internal/modules/pack/domain"
)

// PackRepository mediates every read and removal under the packs directory.
type PackRepository interface {
	Root() string
	ListNames(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (domain.PackManifest, error)
	Remove(ctx context.Context, name string) error
	Backup(ctx context.Context, name string) (string, error)
	Restore(ctx context.Context, name, backupPath string) error
	DiscardBackup(ctx context.Context, backupPath string) error
	StickerPath(name, sticker string) (string, bool)
	StickerBytes(name, sticker string) ([]byte, bool)
}

type HubClient interface {
	FetchPacks(ctx context.Context, forceRefresh bool) ([]domain.HubPackInfo, error)
	FetchPackInfo(ctx context.Context, name string, forceRefresh bool) (domain.HubPackInfo, bool, error)
	DownloadPack(ctx context.Context, url, outputPath string, progress domain.ProgressFunc) error
	FetchHubIndex(ctx context.Context) ([]domain.HubPackReference, error)
	FetchPackManifest(ctx context.Context, source domain.GitHubSource) (domain.RemoteManifest, error)
	ClearCache()
}

type Updater interface {
	CheckUpdateAvailable(ctx context.Context, name, currentVersion string) (domain.HubPackInfo, bool, error)
	DownloadPack(ctx context.Context, info domain.HubPackInfo, outputDir string, progress domain.ProgressFunc) (string, error)
	ExtractPack(ctx context.Context, zipPath, extractDir string, progress domain.ProgressFunc) (string, error)
	InstallPack(ctx context.Context, zipPath, installDir, packName string, progress domain.ProgressFunc) (domain.PackManifest, error)
}

// ConfigStore persists the whole PackConfig map at once.
type ConfigStore interface {
	Load(ctx context.Context) (map[string]domain.PackConfig, error)
	Save(ctx context.Context, configs map[string]domain.PackConfig) error
}

type EventJournal interface {
	domain.Listener
	Recent(ctx context.Context, packName string, limit int) ([]domain.PackEvent, error)
}
