package domain

// PackShortcut is a shortcut together with the pack that owns it. Active
// requires both the shortcut and its pack to be enabled.
type PackShortcut struct {
	Pack     string
	Shortcut Shortcut
	Active   bool
}

type ManagerStatus struct {
	DataDir      string
	PacksDir     string
	TotalPacks   int
	EnabledPacks int
	AutoUpdate   bool
	ForceUpdate  bool
}

// UpdateResult describes one update attempt. Changed is false when the hub
// had nothing newer.
type UpdateResult struct {
	Pack       string
	Changed    bool
	OldVersion string
	NewVersion string
	Err        error
}
