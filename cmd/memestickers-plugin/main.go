// Command memestickers-plugin serves the sticker command router to a chat
// host over go-plugin.
package main

import (
	"context"
	"os"
	"strings"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"memestickers/internal/bootstrap"
	"memestickers/internal/modules/command/adapter/in/rpc"
	"memestickers/internal/platform/config"
)

var version = "dev"

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "memestickers-plugin",
		Output:     os.Stderr,
		Level:      hclog.Info,
		JSONFormat: true,
	})
	if err := run(logger); err != nil {
		logger.Error("plugin stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger hclog.Logger) error {
	dataDir := strings.TrimSpace(os.Getenv("MEMESTICKERS_DATA_DIR"))
	if dataDir == "" {
		dataDir = "data"
	}
	cfg, err := config.Load(dataDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Load(ctx); err != nil {
		return err
	}
	go func() {
		if err := app.RunBackground(ctx); err != nil {
			logger.Warn("background work stopped", "err", err)
		}
	}()

	server := rpc.NewServer(app.Commands, rpc.Metadata{
		Name:         "memestickers",
		Version:      version,
		Prefix:       cfg.CommandPrefix,
		Capabilities: []string{"text", "image", "sessions"},
	})
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: rpc.HandshakeConfig,
		Plugins:         rpc.PluginMap(server),
		GRPCServer:      plugin.DefaultGRPCServer,
		Logger:          logger,
	})
	return nil
}
