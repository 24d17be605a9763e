package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"memestickers/internal/modules/pack/domain"
	packout "memestickers/internal/modules/pack/port/out"
	"memestickers/internal/platform/slug"
)

const backupPrefix = ".backup-"

type FSPackRepository struct {
	root string
}

func NewFSPackRepository(root string) packout.PackRepository {
	return &FSPackRepository{root: filepath.Clean(root)}
}

func (r *FSPackRepository) Root() string { return r.root }

// ListNames returns every pack directory name, skipping dot-prefixed
// entries (temp, backup and extraction directories).
func (r *FSPackRepository) ListNames(_ context.Context) ([]string, error) {
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return nil, fmt.Errorf("create packs dir: %w", err)
	}
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("read packs dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (r *FSPackRepository) Load(_ context.Context, name string) (domain.PackManifest, error) {
	if err := slug.ValidateDirName(name); err != nil {
		return domain.PackManifest{}, &domain.ManifestError{Pack: name, Err: err}
	}
	pack := OpenPack(filepath.Join(r.root, name))
	manifest, err := pack.LoadManifest()
	if err != nil {
		return domain.PackManifest{}, err
	}
	if manifest.Name != name {
		return domain.PackManifest{}, &domain.ManifestError{
			Pack: name,
			Err:  fmt.Errorf("manifest name %q does not match directory %q", manifest.Name, name),
		}
	}
	stickers, err := pack.DiscoverStickers()
	if err != nil {
		return domain.PackManifest{}, &domain.ManifestError{Pack: name, Err: err}
	}
	manifest.Stickers = stickers
	return manifest, nil
}

func (r *FSPackRepository) Remove(_ context.Context, name string) error {
	if err := slug.ValidateDirName(name); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(r.root, name)); err != nil {
		return fmt.Errorf("remove pack dir: %w", err)
	}
	return nil
}

// Backup moves the pack directory aside and returns where it went. An
// absent pack yields an empty path.
func (r *FSPackRepository) Backup(_ context.Context, name string) (string, error) {
	if err := slug.ValidateDirName(name); err != nil {
		return "", err
	}
	dir := filepath.Join(r.root, name)
	if !exists(dir) {
		return "", nil
	}
	backup := filepath.Join(r.root, backupPrefix+name+"-"+strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := os.Rename(dir, backup); err != nil {
		return "", fmt.Errorf("backup pack dir: %w", err)
	}
	return backup, nil
}

func (r *FSPackRepository) Restore(_ context.Context, name, backupPath string) error {
	if backupPath == "" {
		return nil
	}
	if err := slug.ValidateDirName(name); err != nil {
		return err
	}
	dir := filepath.Join(r.root, name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear pack dir before restore: %w", err)
	}
	if err := os.Rename(backupPath, dir); err != nil {
		return fmt.Errorf("restore pack dir: %w", err)
	}
	return nil
}

func (r *FSPackRepository) DiscardBackup(_ context.Context, backupPath string) error {
	if backupPath == "" {
		return nil
	}
	if !strings.HasPrefix(filepath.Base(backupPath), backupPrefix) {
		return fmt.Errorf("not a backup directory: %s", backupPath)
	}
	return os.RemoveAll(backupPath)
}

func (r *FSPackRepository) StickerPath(name, sticker string) (string, bool) {
	if slug.ValidateDirName(name) != nil {
		return "", false
	}
	return OpenPack(filepath.Join(r.root, name)).StickerPath(sticker)
}

func (r *FSPackRepository) StickerBytes(name, sticker string) ([]byte, bool) {
	if slug.ValidateDirName(name) != nil {
		return nil, false
	}
	return OpenPack(filepath.Join(r.root, name)).StickerBytes(sticker)
}
