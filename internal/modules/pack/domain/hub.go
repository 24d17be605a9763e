package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// HubPackInfo is one entry of the flat hub catalog. It lives only in the hub
// client's cache and is never written to disk.
type HubPackInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Size        int64  `json:"size,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	Downloads   int64  `json:"downloads,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
}

func (h *HubPackInfo) UnmarshalJSON(data []byte) error {
	type plain HubPackInfo
	decoded := plain{Version: DefaultVersion, Author: DefaultAuthor}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*h = HubPackInfo(decoded)
	return nil
}

func (h HubPackInfo) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("hub pack name is required")
	}
	if strings.TrimSpace(h.URL) == "" {
		return fmt.Errorf("hub pack %s has no download url", h.Name)
	}
	return nil
}

// Label returns the display name, falling back to the pack name.
func (h HubPackInfo) Label() string {
	if h.DisplayName != "" {
		return h.DisplayName
	}
	return h.Name
}

const SourceTypeGitHub = "github"

type GitHubSource struct {
	Type   string `json:"type"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

func (s *GitHubSource) UnmarshalJSON(data []byte) error {
	type plain GitHubSource
	decoded := plain{Type: SourceTypeGitHub, Branch: "main"}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = GitHubSource(decoded)
	return nil
}

func (s GitHubSource) Validate() error {
	if s.Type != SourceTypeGitHub {
		return fmt.Errorf("unsupported hub source type: %s", s.Type)
	}
	if s.Owner == "" || s.Repo == "" {
		return fmt.Errorf("github source requires owner and repo")
	}
	return nil
}

// RawURL fills a raw-content template of the form
// https://raw.githubusercontent.com/{owner}/{repo}/{ref}/{path}.
func (s GitHubSource) RawURL(template, filename string) string {
	full := strings.TrimLeft(s.Path+"/"+filename, "/")
	return strings.NewReplacer(
		"{owner}", s.Owner,
		"{repo}", s.Repo,
		"{ref}", s.Branch,
		"{path}", full,
	).Replace(template)
}

// ReleaseURL fills a release-asset template of the form
// https://github.com/{owner}/{repo}/releases/download/{tag}/{filename}.
func (s GitHubSource) ReleaseURL(template, tag, filename string) string {
	return strings.NewReplacer(
		"{owner}", s.Owner,
		"{repo}", s.Repo,
		"{tag}", tag,
		"{filename}", filename,
	).Replace(template)
}

type HubPackReference struct {
	Slug   string       `json:"slug"`
	Source GitHubSource `json:"source"`
}

// HubIndex accepts either a bare array of references or an object with a
// "packs" array.
type HubIndex struct {
	Packs []HubPackReference `json:"packs"`
}

func (i *HubIndex) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var packs []HubPackReference
		if err := json.Unmarshal(trimmed, &packs); err != nil {
			return err
		}
		i.Packs = packs
		return nil
	}
	type plain HubIndex
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	i.Packs = decoded.Packs
	return nil
}

func (i HubIndex) Find(slug string) (HubPackReference, bool) {
	for _, ref := range i.Packs {
		if ref.Slug == slug {
			return ref, true
		}
	}
	return HubPackReference{}, false
}

// RemoteManifest is the subset of a remote metadata.json the index install
// path reads.
type RemoteManifest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	Checksum    string `json:"checksum"`
}

// HubInfo builds the catalog entry used to install slug. downloadURL is the
// manifest url when present.
func (m RemoteManifest) HubInfo(slug, downloadURL string) HubPackInfo {
	info := HubPackInfo{
		Name:        slug,
		DisplayName: m.DisplayName,
		Description: m.Description,
		URL:         downloadURL,
		Version:     m.Version,
		Author:      m.Author,
		Checksum:    m.Checksum,
	}
	if info.DisplayName == "" {
		info.DisplayName = slug
	}
	if info.Version == "" {
		info.Version = DefaultVersion
	}
	if info.Author == "" {
		info.Author = DefaultAuthor
	}
	return info
}

// ProgressFunc receives human readable progress messages.
type ProgressFunc func(message string)

func (f ProgressFunc) Report(format string, args ...any) {
	if f != nil {
		f(fmt.Sprintf(format, args...))
	}
}
