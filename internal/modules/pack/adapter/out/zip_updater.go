package out

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"memestickers/internal/modules/pack/domain"
	packout "memestickers/internal/modules/pack/port/out"
	"memestickers/internal/platform/slug"
)

const (
	extractDirName           = ".temp_extract"
	replacedDirName          = ".replaced"
	maxPackFiles             = 4096
	maxPackFileBytes         = 32 << 20
	maxPackUncompressedBytes = 512 << 20
)

// ZipUpdater runs the download, verify, extract and install pipeline.
type ZipUpdater struct {
	hub packout.HubClient
}

func NewZipUpdater(hub packout.HubClient) *ZipUpdater {
	return &ZipUpdater{hub: hub}
}

var _ packout.Updater = (*ZipUpdater)(nil)

// CheckUpdateAvailable returns the hub entry for name and whether it is
// strictly newer than currentVersion. An empty currentVersion always
// counts as outdated.
func (u *ZipUpdater) CheckUpdateAvailable(ctx context.Context, name, currentVersion string) (domain.HubPackInfo, bool, error) {
	info, ok, err := u.hub.FetchPackInfo(ctx, name, false)
	if err != nil {
		return domain.HubPackInfo{}, false, &domain.UpdateError{Op: "check update", Pack: name, Err: err}
	}
	if !ok {
		return domain.HubPackInfo{}, false, nil
	}
	if strings.TrimSpace(currentVersion) == "" {
		return info, true, nil
	}
	return info, domain.CompareVersions(info.Version, currentVersion) > 0, nil
}

func (u *ZipUpdater) DownloadPack(ctx context.Context, info domain.HubPackInfo, outputDir string, progress domain.ProgressFunc) (string, error) {
	if err := info.Validate(); err != nil {
		return "", &domain.UpdateError{Op: "download", Pack: info.Name, Err: err}
	}
	if err := slug.ValidateDirName(info.Name); err != nil {
		return "", &domain.UpdateError{Op: "download", Pack: info.Name, Err: err}
	}
	target := filepath.Join(outputDir, info.Name+".zip")
	progress.Report("downloading %s", info.Label())
	if err := u.hub.DownloadPack(ctx, info.URL, target, progress); err != nil {
		_ = os.Remove(target)
		return "", &domain.UpdateError{Op: "download", Pack: info.Name, Err: err}
	}
	if info.Checksum != "" {
		if err := verifyChecksum(target, info.Checksum); err != nil {
			_ = os.Remove(target)
			return "", &domain.UpdateError{Op: "verify", Pack: info.Name, Err: err}
		}
		progress.Report("checksum verified")
	}
	return target, nil
}

func verifyChecksum(path, expected string) error {
	algorithm, digest, err := domain.SplitChecksum(expected)
	if err != nil {
		return err
	}
	actual, err := CalculateChecksum(path, algorithm)
	if err != nil {
		return err
	}
	if actual != digest {
		return fmt.Errorf("%w: expected %s got %s", domain.ErrChecksumMismatch, digest, actual)
	}
	return nil
}

// ExtractPack unpacks zipPath under extractDir and returns the pack root:
// the single top-level directory when the archive has exactly one, else
// extractDir itself.
func (u *ZipUpdater) ExtractPack(_ context.Context, zipPath, extractDir string, progress domain.ProgressFunc) (string, error) {
	reader, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if reader != nil {
			_ = reader.Close()
		}
		return "", &domain.UpdateError{Op: "extract", Err: fmt.Errorf("%w: %v", domain.ErrUnsafeArchivePath, err)}
	}
	if err != nil {
		return "", &domain.UpdateError{Op: "extract", Err: fmt.Errorf("open archive: %w", err)}
	}
	defer reader.Close()

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", &domain.UpdateError{Op: "extract", Err: err}
	}
	var (
		files   int
		totalSz uint64
	)
	for _, file := range reader.File {
		target, err := safeJoin(extractDir, file.Name)
		if err != nil {
			return "", &domain.UpdateError{Op: "extract", Err: err}
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", &domain.UpdateError{Op: "extract", Err: err}
			}
			continue
		}
		if !file.Mode().IsRegular() {
			continue
		}
		files++
		if files > maxPackFiles {
			return "", &domain.UpdateError{Op: "extract", Err: fmt.Errorf("%w: more than %d files", domain.ErrArchiveTooLarge, maxPackFiles)}
		}
		if file.UncompressedSize64 > maxPackFileBytes {
			return "", &domain.UpdateError{Op: "extract", Err: fmt.Errorf("%w: %s", domain.ErrArchiveTooLarge, file.Name)}
		}
		totalSz += file.UncompressedSize64
		if totalSz > maxPackUncompressedBytes {
			return "", &domain.UpdateError{Op: "extract", Err: fmt.Errorf("%w: more than %d bytes", domain.ErrArchiveTooLarge, maxPackUncompressedBytes)}
		}
		if err := extractFile(file, target); err != nil {
			return "", &domain.UpdateError{Op: "extract", Err: fmt.Errorf("%s: %w", file.Name, err)}
		}
	}
	progress.Report("extracted %d files", files)

	root, err := findPackRoot(extractDir)
	if err != nil {
		return "", &domain.UpdateError{Op: "extract", Err: err}
	}
	return root, nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(src, maxPackFileBytes+1)); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func findPackRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

func safeJoin(base, name string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(filepath.FromSlash(name)))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsafeArchivePath, name)
	}
	if filepath.IsAbs(clean) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: absolute path %q", domain.ErrUnsafeArchivePath, name)
	}
	target := filepath.Join(base, clean)
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsafeArchivePath, name)
	}
	return target, nil
}

// InstallPack extracts into a private installDir/.temp_extract-* directory,
// validates the result, replaces any existing directory of the final name
// and re-saves the manifest with freshly discovered stickers. The extraction
// directory is removed on every path.
func (u *ZipUpdater) InstallPack(ctx context.Context, zipPath, installDir, packName string, progress domain.ProgressFunc) (domain.PackManifest, error) {
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: packName, Err: err}
	}
	tempDir, err := os.MkdirTemp(installDir, extractDirName+"-*")
	if err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: packName, Err: err}
	}
	defer os.RemoveAll(tempDir)

	root, err := u.ExtractPack(ctx, zipPath, tempDir, progress)
	if err != nil {
		return domain.PackManifest{}, err
	}

	staged := OpenPack(root)
	manifest, err := staged.LoadManifest()
	if err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: packName, Err: err}
	}
	stickers, err := staged.DiscoverStickers()
	if err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: packName, Err: err}
	}
	if len(stickers) == 0 {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: packName, Err: errors.New("pack contains no stickers")}
	}

	finalName := packName
	if finalName == "" {
		finalName = manifest.Name
	}
	if err := slug.ValidateDirName(finalName); err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: finalName, Err: err}
	}
	finalDir := filepath.Join(installDir, finalName)
	holder, err := os.MkdirTemp(installDir, replacedDirName+"-*")
	if err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: finalName, Err: err}
	}
	defer os.RemoveAll(holder)
	aside, err := moveAside(finalDir, holder)
	if err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: finalName, Err: fmt.Errorf("move existing pack aside: %w", err)}
	}
	if err := os.Rename(root, finalDir); err != nil {
		if aside != "" {
			if restoreErr := os.Rename(aside, finalDir); restoreErr != nil {
				err = errors.Join(err, restoreErr)
			}
		}
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: finalName, Err: fmt.Errorf("move pack into place: %w", err)}
	}

	installed := OpenPack(finalDir)
	fresh, err := installed.DiscoverStickers()
	if err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: finalName, Err: err}
	}
	manifest.Name = finalName
	manifest.Stickers = fresh
	installed.SetManifest(manifest)
	if err := installed.SaveManifest(); err != nil {
		return domain.PackManifest{}, &domain.UpdateError{Op: "install", Pack: finalName, Err: err}
	}
	progress.Report("installed %s (%d stickers)", finalName, len(fresh))
	return manifest, nil
}

// moveAside renames an existing dir into holder and returns its new path,
// or "" when dir does not exist.
func moveAside(dir, holder string) (string, error) {
	if _, err := os.Lstat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	aside := filepath.Join(holder, filepath.Base(dir))
	if err := os.Rename(dir, aside); err != nil {
		return "", err
	}
	return aside, nil
}
