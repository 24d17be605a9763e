package domain

import "strings"

const DefaultPrefix = "/meme"

// Command is one row of the static command table.
type Command struct {
	Name    string
	Usage   string
	Summary string
	// Admin commands mutate packs and require an admin identity when admins
	// are configured.
	Admin bool
}

// Entry is what the router resolves a word to: a built-in command or a
// shortcut owned by a pack.
type Entry struct {
	Command
	Shortcut bool
	Pack     string
	Target   string
	Active   bool
}

func BuiltinCommands() []Command {
	return []Command{
		{Name: "help", Usage: "help", Summary: "Show this help message"},
		{Name: "list", Usage: "list [--online]", Summary: "List installed packs, or hub packs with --online"},
		{Name: "status", Usage: "status", Summary: "Show plugin status"},
		{Name: "history", Usage: "history [pack]", Summary: "Show recent pack lifecycle events"},
		{Name: "generate", Usage: "generate [pack] [sticker] [text] [options]", Summary: "Draw text on a sticker; missing arguments are asked for"},
		{Name: "reload", Usage: "reload", Summary: "Reload packs from disk", Admin: true},
		{Name: "install", Usage: "install <name> [--as <dir>] | install --index <slug>", Summary: "Install a pack from the hub", Admin: true},
		{Name: "update", Usage: "update <name> [--force]", Summary: "Update a pack from its origin", Admin: true},
		{Name: "delete", Usage: "delete <name>", Summary: "Delete a pack after confirmation", Admin: true},
		{Name: "enable", Usage: "enable <name>", Summary: "Enable a pack", Admin: true},
		{Name: "disable", Usage: "disable <name>", Summary: "Disable a pack", Admin: true},
		{Name: "shortcut", Usage: "shortcut add <pack> <name> <command...> | remove <pack> <name> | list", Summary: "Manage shortcuts", Admin: true},
	}
}

// IsCancelWord reports whether text aborts a pending flow.
func IsCancelWord(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "exit", "cancel":
		return true
	default:
		return false
	}
}

// IsConfirmWord reports whether text confirms a pending deletion.
func IsConfirmWord(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}
