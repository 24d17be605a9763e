package out

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"memestickers/internal/modules/pack/domain"
)

// Pack is one pack directory on disk.
type Pack struct {
	dir      string
	manifest *domain.PackManifest
}

func OpenPack(dir string) *Pack {
	return &Pack{dir: filepath.Clean(dir)}
}

func (p *Pack) Dir() string { return p.dir }

func (p *Pack) Name() string { return filepath.Base(p.dir) }

func (p *Pack) Manifest() (domain.PackManifest, bool) {
	if p.manifest == nil {
		return domain.PackManifest{}, false
	}
	return *p.manifest, true
}

func (p *Pack) SetManifest(m domain.PackManifest) {
	p.manifest = &m
}

func (p *Pack) LoadManifest() (domain.PackManifest, error) {
	path := filepath.Join(p.dir, domain.ManifestFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PackManifest{}, p.manifestErr(fmt.Errorf("manifest not found: %s", path))
		}
		return domain.PackManifest{}, p.manifestErr(fmt.Errorf("read manifest: %w", err))
	}
	if err := validateManifestDocument(raw); err != nil {
		return domain.PackManifest{}, p.manifestErr(err)
	}
	var manifest domain.PackManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return domain.PackManifest{}, p.manifestErr(fmt.Errorf("decode manifest: %w", err))
	}
	if err := manifest.Validate(); err != nil {
		return domain.PackManifest{}, p.manifestErr(err)
	}
	p.manifest = &manifest
	return manifest, nil
}

func (p *Pack) DiscoverStickers() ([]domain.StickerInfo, error) {
	dir := filepath.Join(p.dir, domain.StickersDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.StickerInfo{}, nil
		}
		return nil, fmt.Errorf("read stickers dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !domain.IsStickerFile(entry.Name()) || !isRegularFile(dir, entry) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]domain.StickerInfo, 0, len(names))
	seen := map[string]struct{}{}
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if _, dup := seen[stem]; dup {
			continue
		}
		seen[stem] = struct{}{}
		out = append(out, domain.StickerInfo{
			Name:   stem,
			Path:   domain.StickersDir + "/" + name,
			Source: domain.SourceLocal,
		})
	}
	return out, nil
}

// isRegularFile follows symlinks; a dangling link or a link to a directory
// is not a sticker.
func isRegularFile(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

func (p *Pack) SaveManifest() error {
	if p.manifest == nil {
		return p.manifestErr(domain.ErrNoManifest)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return p.manifestErr(fmt.Errorf("create pack dir: %w", err))
	}
	manifest := *p.manifest
	if manifest.Stickers == nil {
		manifest.Stickers = []domain.StickerInfo{}
	}
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return p.manifestErr(fmt.Errorf("marshal manifest: %w", err))
	}
	if err := writeFileAtomic(filepath.Join(p.dir, domain.ManifestFile), append(payload, '\n'), 0o644); err != nil {
		return p.manifestErr(fmt.Errorf("write manifest: %w", err))
	}
	return nil
}

// Validate is the acceptance gate for an extracted pack: a loadable
// manifest plus at least one sticker.
func (p *Pack) Validate() bool {
	if !exists(filepath.Join(p.dir, domain.ManifestFile)) {
		return false
	}
	if _, err := p.LoadManifest(); err != nil {
		return false
	}
	if !exists(filepath.Join(p.dir, domain.StickersDir)) {
		return false
	}
	stickers, err := p.DiscoverStickers()
	return err == nil && len(stickers) > 0
}

func (p *Pack) StickerPath(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	stickers, err := p.DiscoverStickers()
	if err != nil {
		return "", false
	}
	for _, s := range stickers {
		if s.Name == name {
			return filepath.Join(p.dir, filepath.FromSlash(s.Path)), true
		}
	}
	return "", false
}

func (p *Pack) StickerBytes(name string) ([]byte, bool) {
	path, ok := p.StickerPath(name)
	if !ok {
		return nil, false
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (p *Pack) manifestErr(err error) error {
	var manifestErr *domain.ManifestError
	if errors.As(err, &manifestErr) {
		return err
	}
	return &domain.ManifestError{Pack: p.Name(), Err: err}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFileAtomic(path string, payload []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
