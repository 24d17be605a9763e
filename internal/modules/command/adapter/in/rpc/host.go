package rpc

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"memestickers/internal/modules/command/dto"
	commandin "memestickers/internal/modules/command/port/in"
)

const (
	defaultStartTimeout = 5 * time.Second
	defaultCallTimeout  = 2 * time.Minute
)

type LaunchOptions struct {
	Binary string
	Args   []string
	// Env is appended to the host environment.
	Env          []string
	StartTimeout time.Duration
	// CallTimeout bounds calls whose context has no deadline. Installs and
	// updates run inside Handle, so it is generous.
	CallTimeout time.Duration
	Logger      hclog.Logger
}

// Remote is a command usecase served by a plugin process.
type Remote struct {
	process     *plugin.Client
	client      StickerPluginClient
	metadata    Metadata
	callTimeout time.Duration
}

var _ commandin.Usecase = (*Remote)(nil)

// Launch starts the plugin binary and checks that it answers GetMetadata.
func Launch(ctx context.Context, opts LaunchOptions) (*Remote, error) {
	startTimeout := opts.StartTimeout
	if startTimeout <= 0 {
		startTimeout = defaultStartTimeout
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{Name: "memestickers-host", Output: io.Discard, Level: hclog.NoLevel})
	}
	cmd := exec.Command(opts.Binary, opts.Args...)
	cmd.Env = append(os.Environ(), opts.Env...)
	process := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          PluginMap(nil),
		Cmd:              cmd,
		Managed:          true,
		StartTimeout:     startTimeout,
		Logger:           logger,
	})

	rpcClient, err := process.Client()
	if err != nil {
		process.Kill()
		return nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(PluginMapKey)
	if err != nil {
		process.Kill()
		return nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(StickerPluginClient)
	if !ok {
		process.Kill()
		return nil, fmt.Errorf("plugin rpc client type mismatch")
	}
	r := &Remote{process: process, client: typed, callTimeout: callTimeout}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	meta, err := typed.GetMetadata(callCtx)
	if err != nil {
		process.Kill()
		return nil, fmt.Errorf("get metadata: %w", FromStatus(err))
	}
	r.metadata = *meta
	return r, nil
}

func (r *Remote) Metadata() Metadata {
	return r.metadata
}

func (r *Remote) Handle(ctx context.Context, request dto.Request) (dto.Response, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	resp, err := r.client.Handle(callCtx, &HandleRequest{UserID: request.UserID, Text: request.Text})
	if err != nil {
		return dto.Response{}, fmt.Errorf("handle: %w", FromStatus(err))
	}
	out := dto.Response{Handled: resp.Handled, Replies: make([]dto.Reply, 0, len(resp.Replies))}
	for _, reply := range resp.Replies {
		out.Replies = append(out.Replies, dto.Reply{Kind: reply.Kind, Text: reply.Text, Image: reply.Image, MIMEType: reply.MIMEType})
	}
	return out, nil
}

func (r *Remote) Commands(ctx context.Context) ([]dto.CommandInfo, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	resp, err := r.client.ListCommands(callCtx)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", FromStatus(err))
	}
	out := make([]dto.CommandInfo, 0, len(resp.Commands))
	for _, c := range resp.Commands {
		out = append(out, dto.CommandInfo{
			Name:     c.Name,
			Usage:    c.Usage,
			Summary:  c.Summary,
			Admin:    c.Admin,
			Shortcut: c.Shortcut,
			Pack:     c.Pack,
			Active:   c.Active,
		})
	}
	return out, nil
}

func (r *Remote) Refresh(ctx context.Context) error {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	if err := r.client.Refresh(callCtx); err != nil {
		return fmt.Errorf("refresh: %w", FromStatus(err))
	}
	return nil
}

// Close stops the plugin process.
func (r *Remote) Close() {
	r.process.Kill()
}

func (r *Remote) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, r.callTimeout)
}
