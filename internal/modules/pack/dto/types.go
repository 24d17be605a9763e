package dto

import "time"

type StickerOutput struct {
	Name   string
	Path   string
	Source string
}

type PackOutput struct {
	Name         string
	DisplayName  string
	Description  string
	Version      string
	Author       string
	Enabled      bool
	URL          string
	StickerCount int
	Stickers     []StickerOutput
	Shortcuts    []ShortcutOutput
}

type ShortcutOutput struct {
	Pack        string
	Name        string
	Command     string
	Description string
	Enabled     bool
}

type HubPackOutput struct {
	Name        string
	DisplayName string
	Description string
	Version     string
	Author      string
	URL         string
	Size        int64
	Downloads   int64
	Installed   bool
	Installable bool
}

type HubIndexOutput struct {
	Slug   string
	Owner  string
	Repo   string
	Branch string
	Path   string
}

type InstallInput struct {
	Name    string
	As      string
	Refresh bool
}

type InstallOutput struct {
	Name     string
	Version  string
	Stickers int
}

type UpdateOutput struct {
	Name       string
	Updated    bool
	OldVersion string
	NewVersion string
}

type ShortcutInput struct {
	Pack        string
	Name        string
	Command     string
	Description string
}

type StatusOutput struct {
	DataDir      string
	PacksDir     string
	TotalPacks   int
	EnabledPacks int
	AutoUpdate   bool
	ForceUpdate  bool
}

type EventOutput struct {
	ID       string
	PackName string
	State    string
	Error    string
	At       time.Time
}

type StickerFile struct {
	Pack    string
	Sticker string
	Path    string
	Bytes   []byte
}

// Progress receives human readable progress lines during long operations.
type Progress func(message string)
