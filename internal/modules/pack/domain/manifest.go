package domain

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	ManifestFile   = "metadata.json"
	StickersDir    = "stickers"
	DefaultVersion = "1.0.0"
	DefaultAuthor  = "Unknown"
)

type FileSource string

const (
	SourceLocal   FileSource = "local"
	SourceRemote  FileSource = "remote"
	SourceBuiltin FileSource = "builtin"
)

func (s FileSource) Validate() error {
	switch s {
	case SourceLocal, SourceRemote, SourceBuiltin:
		return nil
	default:
		return fmt.Errorf("unknown file source: %s", s)
	}
}

var supportedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// SupportedExtensions lists the image extensions in lookup order.
func SupportedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
}

// IsStickerFile reports whether name carries a supported image extension,
// compared case-insensitively.
func IsStickerFile(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

type StickerInfo struct {
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Source    FileSource `json:"file_source"`
	CreatedAt string     `json:"created_at,omitempty"`
}

// PackManifest mirrors metadata.json. Stickers is derived from the stickers
// directory on every load and is not the source of truth.
type PackManifest struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	Author      string        `json:"author"`
	Enabled     bool          `json:"enabled"`
	URL         string        `json:"url,omitempty"`
	Checksum    string        `json:"checksum,omitempty"`
	CreatedAt   string        `json:"created_at,omitempty"`
	UpdatedAt   string        `json:"updated_at,omitempty"`
	Stickers    []StickerInfo `json:"stickers"`
}

func (m *PackManifest) UnmarshalJSON(data []byte) error {
	type plain PackManifest
	decoded := plain{Version: DefaultVersion, Author: DefaultAuthor, Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*m = PackManifest(decoded)
	return nil
}

func (m PackManifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("pack name is required")
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		return fmt.Errorf("pack display_name is required")
	}
	return nil
}

func (m PackManifest) StickerNames() []string {
	out := make([]string, 0, len(m.Stickers))
	for _, s := range m.Stickers {
		out = append(out, s.Name)
	}
	return out
}

func (m PackManifest) HasSticker(name string) bool {
	for _, s := range m.Stickers {
		if s.Name == name {
			return true
		}
	}
	return false
}
