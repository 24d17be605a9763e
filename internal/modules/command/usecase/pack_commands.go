package usecase

import (
	"context"
	"fmt"
	"strings"

	"memestickers/internal/modules/command/domain"
	"memestickers/internal/modules/command/service"
	packdto "memestickers/internal/modules/pack/dto"
	sessiondto "memestickers/internal/modules/session/dto"
	apperrors "memestickers/internal/platform/errors"
)

const historyLimit = 10

func (r *Router) help(c *call) {
	var b strings.Builder
	b.WriteString("Meme Stickers commands:")
	var shortcuts []domain.Entry
	for _, e := range r.table.Load().Entries() {
		if e.Shortcut {
			shortcuts = append(shortcuts, e)
			continue
		}
		fmt.Fprintf(&b, "\n  %s %s - %s", r.prefix, e.Usage, e.Summary)
	}
	if len(shortcuts) > 0 {
		b.WriteString("\nShortcuts:")
		for _, e := range shortcuts {
			state := ""
			if !e.Active {
				state = " (disabled)"
			}
			fmt.Fprintf(&b, "\n  /%s - %s [%s]%s", e.Name, e.Summary, e.Pack, state)
		}
	}
	b.WriteString("\nReply exit or cancel to abort a pending step.")
	c.say("%s", b.String())
}

func (r *Router) list(ctx context.Context, c *call, args []string) error {
	online := false
	for _, a := range args {
		switch a {
		case "--online", "-o":
			online = true
		default:
			return usageError("list [--online]")
		}
	}
	if online {
		return r.listHub(ctx, c)
	}
	packs, err := r.packs.ListPacks(ctx)
	if err != nil {
		return err
	}
	if len(packs) == 0 {
		c.say("No sticker packs available")
		return nil
	}
	lines := []string{"Available Sticker Packs:"}
	for _, p := range packs {
		mark := "✗"
		if p.Enabled {
			mark = "✓"
		}
		lines = append(lines, fmt.Sprintf("  [%s] %s (%s) - %d sticker(s) - v%s", mark, p.DisplayName, p.Name, p.StickerCount, p.Version))
	}
	c.say("%s", strings.Join(lines, "\n"))
	return nil
}

func (r *Router) listHub(ctx context.Context, c *call) error {
	packs, err := r.packs.ListHub(ctx, false)
	if err != nil {
		return err
	}
	if len(packs) == 0 {
		c.say("The hub has no sticker packs")
		return nil
	}
	lines := []string{"Hub Sticker Packs:"}
	for _, p := range packs {
		line := fmt.Sprintf("  %s (%s) - v%s by %s", p.DisplayName, p.Name, p.Version, p.Author)
		if p.Installed {
			line += " [installed]"
		}
		lines = append(lines, line)
	}
	c.say("%s", strings.Join(lines, "\n"))
	return nil
}

func (r *Router) status(ctx context.Context, c *call) {
	s := r.packs.Status(ctx)
	c.say("Meme Stickers Plugin Status\n"+
		"Data directory: %s\n"+
		"Packs directory: %s\n"+
		"Total packs: %d\n"+
		"Enabled packs: %d\n"+
		"Auto-update: %s\n"+
		"Force update: %s",
		s.DataDir, s.PacksDir, s.TotalPacks, s.EnabledPacks, onOff(s.AutoUpdate, "Enabled", "Disabled"), onOff(s.ForceUpdate, "Yes", "No"))
}

func onOff(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

func (r *Router) history(ctx context.Context, c *call, args []string) error {
	if len(args) > 1 {
		return usageError("history [pack]")
	}
	pack := ""
	if len(args) == 1 {
		pack = args[0]
	}
	events, err := r.packs.History(ctx, pack, historyLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		c.say("No pack events recorded")
		return nil
	}
	lines := []string{"Recent pack events:"}
	for _, e := range events {
		line := fmt.Sprintf("  %s %s %s", e.At.Format("2006-01-02 15:04:05"), e.PackName, e.State)
		if e.Error != "" {
			line += ": " + e.Error
		}
		lines = append(lines, line)
	}
	c.say("%s", strings.Join(lines, "\n"))
	return nil
}

func (r *Router) reload(ctx context.Context, c *call) error {
	if err := r.packs.Reload(ctx); err != nil {
		return err
	}
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	packs, err := r.packs.ListPacks(ctx)
	if err != nil {
		return err
	}
	c.say("Reloaded %d pack(s).", len(packs))
	return nil
}

func (r *Router) install(ctx context.Context, c *call, args []string) error {
	var (
		name, as, index string
		refresh         bool
	)
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--index", "--as":
			if i+1 >= len(args) {
				return usageError("install <name> [--as <dir>] | install --index <slug>")
			}
			if args[i] == "--index" {
				index = args[i+1]
			} else {
				as = args[i+1]
			}
			i++
		case "--refresh":
			refresh = true
		default:
			if name != "" || strings.HasPrefix(args[i], "-") {
				return usageError("install <name> [--as <dir>] | install --index <slug>")
			}
			name = args[i]
		}
	}
	if (name == "") == (index == "") {
		return usageError("install <name> [--as <dir>] | install --index <slug>")
	}

	var out packdto.InstallOutput
	target := name
	if as != "" {
		target = as
	}
	if index != "" {
		target = index
	}
	err := r.withPack(ctx, target, func(ctx context.Context) error {
		var err error
		if index != "" {
			out, err = r.packs.InstallFromIndex(ctx, index, r.progress(ctx, c))
		} else {
			out, err = r.packs.Install(ctx, packdto.InstallInput{Name: name, As: as, Refresh: refresh}, r.progress(ctx, c))
		}
		return err
	})
	if err != nil {
		return err
	}
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	c.say("Installed %s v%s (%d stickers).", out.Name, out.Version, out.Stickers)
	return nil
}

func (r *Router) update(ctx context.Context, c *call, args []string) error {
	var (
		name  string
		force bool
	)
	for _, a := range args {
		switch {
		case a == "--force" || a == "-f":
			force = true
		case name == "" && !strings.HasPrefix(a, "-"):
			name = a
		default:
			return usageError("update <name> [--force]")
		}
	}
	if name == "" {
		return usageError("update <name> [--force]")
	}
	if err := r.requirePack(ctx, name); err != nil {
		return err
	}
	var out packdto.UpdateOutput
	err := r.withPack(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = r.packs.Update(ctx, name, force, r.progress(ctx, c))
		return err
	})
	if err != nil {
		return err
	}
	if !out.Updated {
		c.say("%s is already up to date (v%s).", name, out.OldVersion)
		return nil
	}
	c.say("Updated %s from v%s to v%s.", name, out.OldVersion, out.NewVersion)
	return nil
}

func (r *Router) requestDelete(ctx context.Context, c *call, args []string) error {
	if len(args) != 1 {
		return usageError("delete <name>")
	}
	name := args[0]
	pack, err := r.lookupPack(ctx, name)
	if err != nil {
		return err
	}
	session, err := r.sessions.Create(ctx, sessiondto.CreateInput{
		UserID: c.userID,
		Type:   string(sessionDeleteConfirm),
		Data:   map[string]string{"pack": pack.Name},
	})
	if err != nil {
		return err
	}
	if session.Replaced {
		c.say("Your previous pending step was cancelled.")
	}
	c.say("Delete pack %s (%s)? Reply yes or y to confirm, anything else cancels.", pack.DisplayName, pack.Name)
	return nil
}

func (r *Router) confirmDelete(ctx context.Context, c *call, pack, answer string) error {
	if err := r.sessions.Clear(ctx, c.userID); err != nil {
		return err
	}
	if !domain.IsConfirmWord(answer) {
		c.say("Delete cancelled.")
		return nil
	}
	if !r.isAdmin(c.userID) {
		return fmt.Errorf("%w: delete %s", apperrors.ErrPermissionDenied, pack)
	}
	err := r.withPack(ctx, pack, func(ctx context.Context) error {
		return r.packs.Delete(ctx, pack)
	})
	if err != nil {
		return err
	}
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	c.say("Deleted pack %s.", pack)
	return nil
}

func (r *Router) setEnabled(ctx context.Context, c *call, args []string, enabled bool) error {
	verb := "disable"
	if enabled {
		verb = "enable"
	}
	if len(args) != 1 {
		return usageError("%s <name>", verb)
	}
	name := args[0]
	if err := r.requirePack(ctx, name); err != nil {
		return err
	}
	if err := r.withPack(ctx, name, func(ctx context.Context) error {
		return r.packs.SetEnabled(ctx, name, enabled)
	}); err != nil {
		return err
	}
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	c.say("Pack %s %sd.", name, verb)
	return nil
}

func (r *Router) shortcut(ctx context.Context, c *call, args []string) error {
	const usage = "shortcut add <pack> <name> <command...> | remove <pack> <name> | list"
	if len(args) == 0 {
		return usageError(usage)
	}
	switch args[0] {
	case "list":
		return r.listShortcuts(ctx, c)
	case "add":
		if len(args) < 4 {
			return usageError(usage)
		}
		pack, name, target := args[1], args[2], args[3:]
		if _, ok := r.table.Load().Lookup(name); ok && !r.isShortcut(name) {
			return fmt.Errorf("%w: %s is a built-in command", apperrors.ErrInvalidInput, name)
		}
		if _, ok := r.table.Load().Lookup(target[0]); !ok || r.isShortcut(target[0]) {
			return fmt.Errorf("%w: a shortcut must run a built-in command, not %q", apperrors.ErrInvalidInput, target[0])
		}
		if err := r.requirePack(ctx, pack); err != nil {
			return err
		}
		err := r.withPack(ctx, pack, func(ctx context.Context) error {
			return r.packs.AddShortcut(ctx, packdto.ShortcutInput{Pack: pack, Name: name, Command: domain.Quote(target)})
		})
		if err != nil {
			return err
		}
		if err := r.Refresh(ctx); err != nil {
			return err
		}
		c.say("Shortcut /%s added to %s.", strings.ToLower(name), pack)
		return nil
	case "remove":
		if len(args) != 3 {
			return usageError(usage)
		}
		pack, name := args[1], args[2]
		if err := r.withPack(ctx, pack, func(ctx context.Context) error {
			return r.packs.RemoveShortcut(ctx, pack, name)
		}); err != nil {
			return err
		}
		if err := r.Refresh(ctx); err != nil {
			return err
		}
		c.say("Shortcut /%s removed from %s.", name, pack)
		return nil
	default:
		return usageError(usage)
	}
}

func (r *Router) listShortcuts(ctx context.Context, c *call) error {
	shortcuts, err := r.packs.Shortcuts(ctx)
	if err != nil {
		return err
	}
	if len(shortcuts) == 0 {
		c.say("No shortcuts configured")
		return nil
	}
	lines := []string{"Shortcuts:"}
	for _, s := range shortcuts {
		line := fmt.Sprintf("  /%s -> %s %s [%s]", s.Name, r.prefix, s.Command, s.Pack)
		if !s.Enabled {
			line += " (disabled)"
		}
		lines = append(lines, line)
	}
	c.say("%s", strings.Join(lines, "\n"))
	return nil
}

// lookupPack returns the installed pack or a not-found error that names the
// closest installed packs.
func (r *Router) lookupPack(ctx context.Context, name string) (packdto.PackOutput, error) {
	packs, err := r.packs.ListPacks(ctx)
	if err != nil {
		return packdto.PackOutput{}, err
	}
	names := make([]string, 0, len(packs))
	for _, p := range packs {
		if p.Name == name {
			return p, nil
		}
		names = append(names, p.Name)
	}
	return packdto.PackOutput{}, notFound("pack", name, service.Suggest(name, names))
}

func (r *Router) requirePack(ctx context.Context, name string) error {
	_, err := r.lookupPack(ctx, name)
	return err
}

func notFound(kind, name string, suggestions []string) error {
	if len(suggestions) == 0 {
		return fmt.Errorf("%w: %s %q", apperrors.ErrNotFound, kind, name)
	}
	return fmt.Errorf("%w: %s %q (did you mean: %s?)", apperrors.ErrNotFound, kind, name, strings.Join(suggestions, ", "))
}
