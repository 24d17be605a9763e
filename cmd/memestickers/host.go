package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"memestickers/internal/bootstrap"
	commandinadapter "memestickers/internal/modules/command/adapter/in"
	"memestickers/internal/modules/command/adapter/in/rpc"
	"memestickers/internal/modules/command/dto"
	uiapp "memestickers/internal/ui/app"
	chatview "memestickers/internal/ui/views/chat"
)

// newHostCmd launches a plugin binary the way a chat host would and talks to
// it over go-plugin.
func newHostCmd() *cobra.Command {
	var (
		binary  string
		dataDir string
		userID  string
		outDir  string
		verbose bool
		timeout time.Duration
	)
	host := &cobra.Command{
		Use:   "host [text...]",
		Short: "Run a plugin binary and chat with it, or send one message",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logOutput := io.Discard
			if verbose {
				logOutput = cmd.ErrOrStderr()
			}
			var env []string
			if strings.TrimSpace(dataDir) != "" {
				env = append(env, "MEMESTICKERS_DATA_DIR="+dataDir)
			}
			remote, err := rpc.Launch(ctx, rpc.LaunchOptions{
				Binary:      binary,
				Env:         env,
				CallTimeout: timeout,
				Logger: hclog.New(&hclog.LoggerOptions{
					Name:   "memestickers-host",
					Output: logOutput,
					Level:  hclog.Debug,
				}),
			})
			if err != nil {
				return err
			}
			defer remote.Close()

			handler := commandinadapter.NewCLIHandler(remote)
			meta := remote.Metadata()
			if len(args) == 0 {
				return runConsole(handler, meta.Name+" "+meta.Version, userID, outDir)
			}
			resp, err := handler.Send(ctx, userID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp, outDir)
		},
	}
	host.Flags().StringVar(&binary, "plugin", "memestickers-plugin", "plugin binary to launch")
	host.Flags().StringVar(&dataDir, "plugin-data", "", "data directory handed to the plugin")
	host.Flags().StringVar(&userID, "user", "console", "user id to chat as")
	host.Flags().StringVar(&outDir, "out", "stickers", "directory for generated stickers")
	host.Flags().BoolVarP(&verbose, "verbose", "v", false, "show plugin logs")
	host.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-call timeout")
	return host
}

func runConsole(handler commandinadapter.CLIHandler, title, userID, outDir string) error {
	return bootstrap.RunChat(handler, uiapp.Options{Title: title, UserID: userID, OutputDir: outDir})
}

func printResponse(w io.Writer, resp dto.Response, outDir string) error {
	if !resp.Handled {
		_, _ = fmt.Fprintln(w, "(not handled)")
		return nil
	}
	saved, err := chatview.SaveImages(outDir, 0, resp.Replies)
	for _, reply := range resp.Replies {
		if reply.Kind == "image" {
			continue
		}
		_, _ = fmt.Fprintln(w, reply.Text)
	}
	for _, path := range saved {
		_, _ = fmt.Fprintf(w, "sticker saved to %s\n", path)
	}
	return err
}
