package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Shortcut struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// UnmarshalJSON treats a missing enabled flag as true.
func (s *Shortcut) UnmarshalJSON(data []byte) error {
	type plain Shortcut
	decoded := plain{Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = Shortcut(decoded)
	return nil
}

func (s Shortcut) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("shortcut name is required")
	}
	if strings.ContainsAny(s.Name, " \t\n") {
		return fmt.Errorf("shortcut name must be a single word: %q", s.Name)
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("shortcut command is required")
	}
	return nil
}

type GridSettings struct {
	Columns         int    `json:"columns"`
	Rows            int    `json:"rows"`
	CellWidth       int    `json:"cell_width"`
	CellHeight      int    `json:"cell_height"`
	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
	BorderWidth     int    `json:"border_width"`
}

func DefaultGridSettings() GridSettings {
	return GridSettings{
		Columns:         3,
		Rows:            3,
		CellWidth:       200,
		CellHeight:      200,
		BackgroundColor: "#FFFFFF",
		BorderColor:     "#000000",
		BorderWidth:     1,
	}
}

// UnmarshalJSON fills fields the document leaves out from
// DefaultGridSettings.
func (g *GridSettings) UnmarshalJSON(data []byte) error {
	type plain GridSettings
	decoded := plain(DefaultGridSettings())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*g = GridSettings(decoded)
	return nil
}

// PackConfig is the user-facing configuration layered over a manifest.
// The persisted map in config.json is keyed by Name.
type PackConfig struct {
	Name         string        `json:"name"`
	DisplayName  string        `json:"display_name"`
	Description  string        `json:"description"`
	Enabled      bool          `json:"enabled"`
	Shortcuts    []Shortcut    `json:"shortcuts"`
	URL          string        `json:"url,omitempty"`
	Version      string        `json:"version"`
	Author       string        `json:"author"`
	Checksum     string        `json:"checksum,omitempty"`
	GridSettings *GridSettings `json:"grid_settings,omitempty"`
}

// UnmarshalJSON treats a missing enabled flag as true.
func (c *PackConfig) UnmarshalJSON(data []byte) error {
	type plain PackConfig
	decoded := plain{Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = PackConfig(decoded)
	return nil
}

// NewPackConfig derives the default configuration for a freshly installed pack.
func NewPackConfig(m PackManifest) PackConfig {
	grid := DefaultGridSettings()
	return PackConfig{
		Name:         m.Name,
		DisplayName:  m.DisplayName,
		Description:  m.Description,
		Enabled:      m.Enabled,
		Shortcuts:    []Shortcut{},
		URL:          m.URL,
		Version:      m.Version,
		Author:       m.Author,
		Checksum:     m.Checksum,
		GridSettings: &grid,
	}
}

func (c PackConfig) Shortcut(name string) (Shortcut, bool) {
	for _, s := range c.Shortcuts {
		if s.Name == name {
			return s, true
		}
	}
	return Shortcut{}, false
}

// Clone copies the shortcut slice and grid settings so callers can mutate
// the result without touching a published registry.
func (c PackConfig) Clone() PackConfig {
	out := c
	out.Shortcuts = append([]Shortcut(nil), c.Shortcuts...)
	if c.GridSettings != nil {
		grid := *c.GridSettings
		out.GridSettings = &grid
	}
	return out
}
