package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"memestickers/internal/bootstrap"
	packdto "memestickers/internal/modules/pack/dto"
	"memestickers/internal/platform/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "memestickers",
		Short:         "Meme sticker pack manager",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data", defaultDataDir(), "data directory (packs, config, journal)")

	root.AddCommand(newRunCmd(&dataDir))
	root.AddCommand(newReloadCmd(&dataDir))
	root.AddCommand(newPackCmd(&dataDir))
	root.AddCommand(newHubCmd(&dataDir))
	root.AddCommand(newChatCmd(&dataDir))
	root.AddCommand(newSendCmd(&dataDir))
	root.AddCommand(newHostCmd())
	return root
}

func defaultDataDir() string {
	if dir := strings.TrimSpace(os.Getenv("MEMESTICKERS_DATA_DIR")); dir != "" {
		return dir
	}
	return "data"
}

func loadApp(ctx context.Context, dataDir string) (*bootstrap.App, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, bootstrap.Options{})
}

// withApp loads the packs, runs fn and releases the data directory lock.
func withApp(dataDir string, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := context.Background()
	app, err := loadApp(ctx, dataDir)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Load(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}

func progressTo(w io.Writer) packdto.Progress {
	return func(message string) {
		_, _ = fmt.Fprintln(w, "  "+message)
	}
}

func newRunCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the auto updater, session sweeper and metrics endpoint",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
}

func newReloadCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload packs from disk and report what loaded",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				packs, err := app.PackCLI.List(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d pack(s)\n", len(packs))
				return nil
			})
		},
	}
}

func newPackCmd(dataDir *string) *cobra.Command {
	pack := &cobra.Command{Use: "pack", Short: "Manage installed sticker packs"}

	pack.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed packs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				packs, err := app.PackCLI.List(ctx)
				if err != nil {
					return err
				}
				if len(packs) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no packs")
					return nil
				}
				for _, p := range packs {
					state := "enabled"
					if !p.Enabled {
						state = "disabled"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tv%s\t%d stickers\t%s\n", p.Name, p.DisplayName, p.Version, p.StickerCount, state)
				}
				return nil
			})
		},
	})

	pack.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show pack details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				p, err := app.PackCLI.Show(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "name: %s\ndisplay name: %s\ndescription: %s\nversion: %s\nauthor: %s\nenabled: %t\nurl: %s\n",
					p.Name, p.DisplayName, p.Description, p.Version, p.Author, p.Enabled, p.URL)
				_, _ = fmt.Fprintf(out, "stickers (%d):\n", p.StickerCount)
				for _, s := range p.Stickers {
					_, _ = fmt.Fprintf(out, "  %s\t%s\n", s.Name, s.Path)
				}
				for _, s := range p.Shortcuts {
					_, _ = fmt.Fprintf(out, "shortcut: /%s -> %s\n", s.Name, s.Command)
				}
				return nil
			})
		},
	})

	var as string
	var refresh bool
	var index bool
	install := &cobra.Command{
		Use:   "install <name>",
		Short: "Install a pack from the hub catalog, or from the index with --index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				var (
					out packdto.InstallOutput
					err error
				)
				if index {
					out, err = app.PackCLI.InstallFromIndex(ctx, args[0], progressTo(cmd.OutOrStdout()))
				} else {
					out, err = app.PackCLI.Install(ctx, args[0], as, refresh, progressTo(cmd.OutOrStdout()))
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "installed %s v%s (%d stickers)\n", out.Name, out.Version, out.Stickers)
				return nil
			})
		},
	}
	install.Flags().StringVar(&as, "as", "", "install under a different directory name")
	install.Flags().BoolVar(&refresh, "refresh", false, "bypass the hub catalog cache")
	install.Flags().BoolVar(&index, "index", false, "treat the argument as a hub index slug")
	pack.AddCommand(install)

	var force bool
	update := &cobra.Command{
		Use:   "update <name>",
		Short: "Update a pack from its origin url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.PackCLI.Update(ctx, args[0], force, progressTo(cmd.OutOrStdout()))
				if err != nil {
					return err
				}
				if !out.Updated {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date (v%s)\n", out.Name, out.OldVersion)
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated %s v%s -> v%s\n", out.Name, out.OldVersion, out.NewVersion)
				return nil
			})
		},
	}
	update.Flags().BoolVarP(&force, "force", "f", false, "reinstall even when the version is current")
	pack.AddCommand(update)

	var yes bool
	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a pack and its configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.PackCLI.Delete(ctx, args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	pack.AddCommand(del)

	for _, enabled := range []bool{true, false} {
		use, verb := "enable", "enabled"
		if !enabled {
			use, verb = "disable", "disabled"
		}
		pack.AddCommand(&cobra.Command{
			Use:   use + " <name>",
			Short: strings.ToUpper(use[:1]) + use[1:] + " a pack",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
					if err := app.PackCLI.SetEnabled(ctx, args[0], enabled); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], verb)
					return nil
				})
			},
		})
	}

	pack.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show storage and update settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				s := app.PackCLI.Status(ctx)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "data dir: %s\npacks dir: %s\npacks: %d (%d enabled)\nauto update: %t\nforce update: %t\n",
					s.DataDir, s.PacksDir, s.TotalPacks, s.EnabledPacks, s.AutoUpdate, s.ForceUpdate)
				return nil
			})
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history [name]",
		Short: "Show recorded lifecycle events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				events, err := app.PackCLI.History(ctx, name, limit)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no events")
					return nil
				}
				for _, e := range events {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", e.At.Format("2006-01-02T15:04:05Z07:00"), e.PackName, e.State, e.Error)
				}
				return nil
			})
		},
	}
	history.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	pack.AddCommand(history)

	pack.AddCommand(newShortcutCmd(dataDir))
	return pack
}

func newShortcutCmd(dataDir *string) *cobra.Command {
	shortcut := &cobra.Command{Use: "shortcut", Short: "Manage pack shortcuts"}

	var description string
	add := &cobra.Command{
		Use:   "add <pack> <name> <command...>",
		Short: "Add a shortcut that runs a command of the pack's group",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				command := strings.Join(args[2:], " ")
				if err := app.PackCLI.AddShortcut(ctx, args[0], args[1], command, description); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "shortcut /%s added to %s\n", args[1], args[0])
				return nil
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "summary shown in help")
	shortcut.AddCommand(add)

	shortcut.AddCommand(&cobra.Command{
		Use:   "remove <pack> <name>",
		Short: "Remove a shortcut",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.PackCLI.RemoveShortcut(ctx, args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "shortcut /%s removed from %s\n", args[1], args[0])
				return nil
			})
		},
	})

	shortcut.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List shortcuts of every pack",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				shortcuts, err := app.PackCLI.Shortcuts(ctx)
				if err != nil {
					return err
				}
				if len(shortcuts) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no shortcuts")
					return nil
				}
				for _, s := range shortcuts {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "/%s\t%s\t%s\tenabled=%t\n", s.Name, s.Pack, s.Command, s.Enabled)
				}
				return nil
			})
		},
	})
	return shortcut
}

func newHubCmd(dataDir *string) *cobra.Command {
	hub := &cobra.Command{Use: "hub", Short: "Browse the remote pack catalog"}

	var refresh bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List packs published on the hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				packs, err := app.PackCLI.Hub(ctx, refresh)
				if err != nil {
					return err
				}
				if len(packs) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "hub has no packs")
					return nil
				}
				for _, p := range packs {
					mark := ""
					if p.Installed {
						mark = "installed"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tv%s\t%s\t%s\n", p.Name, p.DisplayName, p.Version, p.Author, mark)
				}
				return nil
			})
		},
	}
	list.Flags().BoolVar(&refresh, "refresh", false, "bypass the catalog cache")
	hub.AddCommand(list)

	hub.AddCommand(&cobra.Command{
		Use:   "index",
		Short: "List packs published through the GitHub index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				entries, err := app.PackCLI.Index(ctx)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "index is empty")
					return nil
				}
				for _, e := range entries {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s@%s\t%s\n", e.Slug, e.Owner, e.Repo, e.Branch, e.Path)
				}
				return nil
			})
		},
	})
	return hub
}

func newChatCmd(dataDir *string) *cobra.Command {
	var userID, outDir string
	chat := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat console",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(_ context.Context, app *bootstrap.App) error {
				return runConsole(app.ChatCLI, "memestickers", userID, outDir)
			})
		},
	}
	chat.Flags().StringVar(&userID, "user", "console", "user id to chat as")
	chat.Flags().StringVar(&outDir, "out", "stickers", "directory for generated stickers")
	return chat
}

func newSendCmd(dataDir *string) *cobra.Command {
	var outDir string
	send := &cobra.Command{
		Use:   "send <user> <text...>",
		Short: "Send one chat message and print the replies",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataDir, func(ctx context.Context, app *bootstrap.App) error {
				resp, err := app.ChatCLI.Send(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printResponse(cmd.OutOrStdout(), resp, outDir)
			})
		},
	}
	send.Flags().StringVar(&outDir, "out", "stickers", "directory for generated stickers")
	return send
}
