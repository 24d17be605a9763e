package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"memestickers/internal/modules/command/domain"
	commanddto "memestickers/internal/modules/command/dto"
	commandin "memestickers/internal/modules/command/port/in"
	commandout "memestickers/internal/modules/command/port/out"
	"memestickers/internal/modules/command/service"
	packin "memestickers/internal/modules/pack/port/in"
	sessionin "memestickers/internal/modules/session/port/in"
	"memestickers/internal/platform/clock"
	apperrors "memestickers/internal/platform/errors"
	"memestickers/internal/platform/logging"
	"memestickers/internal/platform/metrics"
	"memestickers/internal/platform/tx"
)

const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeDenied   = "denied"
	outcomeUnknown  = "unknown"
	outcomeError    = "error"
)

type Options struct {
	Packs    packin.Usecase
	Sessions sessionin.Usecase
	Renderer commandout.Renderer

	Tx      tx.Manager
	Metrics metrics.Metrics
	Clock   clock.Clock
	Logger  *slog.Logger

	Prefix     string
	IsAdmin    func(userID string) bool
	FontFamily string
	FontSize   int
	// TextColor and OutlineColor are used when a generate call names none.
	TextColor    string
	OutlineColor string
}

// Router turns chat messages into pack operations and replies. Messages of
// one user are handled one at a time.
type Router struct {
	packs    packin.Usecase
	sessions sessionin.Usecase
	renderer commandout.Renderer

	tx      tx.Manager
	metrics metrics.Metrics
	clock   clock.Clock
	logger  *slog.Logger

	prefix       string
	isAdmin      func(userID string) bool
	fontFamily   string
	fontSize     int
	textColor    string
	outlineColor string

	table atomic.Pointer[service.Table]
}

func NewRouter(opts Options) *Router {
	r := &Router{
		packs:      opts.Packs,
		sessions:   opts.Sessions,
		renderer:   opts.Renderer,
		tx:         opts.Tx,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		logger:     logging.OrDiscard(opts.Logger),
		prefix:     strings.ToLower(strings.TrimSpace(opts.Prefix)),
		isAdmin:    opts.IsAdmin,
		fontFamily: opts.FontFamily,
		fontSize:   opts.FontSize,

		textColor:    opts.TextColor,
		outlineColor: opts.OutlineColor,
	}
	if r.tx == nil {
		r.tx = tx.NoopManager{}
	}
	if r.metrics == nil {
		r.metrics = metrics.Noop{}
	}
	if r.clock == nil {
		r.clock = clock.SystemClock{}
	}
	if r.prefix == "" {
		r.prefix = domain.DefaultPrefix
	}
	if r.isAdmin == nil {
		r.isAdmin = func(string) bool { return true }
	}
	r.table.Store(service.NewTable(domain.BuiltinCommands(), nil))
	return r
}

var _ commandin.Usecase = (*Router)(nil)

func (r *Router) Refresh(ctx context.Context) error {
	shortcuts, err := r.packs.Shortcuts(ctx)
	if err != nil {
		return err
	}
	specs := make([]service.ShortcutSpec, 0, len(shortcuts))
	for _, s := range shortcuts {
		specs = append(specs, service.ShortcutSpec{
			Pack:        s.Pack,
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Active:      s.Enabled,
		})
	}
	r.table.Store(service.NewTable(domain.BuiltinCommands(), specs))
	return nil
}

func (r *Router) Commands(_ context.Context) ([]commanddto.CommandInfo, error) {
	entries := r.table.Load().Entries()
	out := make([]commanddto.CommandInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, commanddto.CommandInfo{
			Name:     e.Name,
			Usage:    r.prefix + " " + e.Usage,
			Summary:  e.Summary,
			Admin:    e.Admin,
			Shortcut: e.Shortcut,
			Pack:     e.Pack,
			Active:   e.Active,
		})
	}
	return out, nil
}

// call collects the replies and the metric labels of one message.
type call struct {
	userID  string
	command string
	outcome string
	handled bool
	replies []domain.Reply
}

func (c *call) say(format string, args ...any) {
	c.replies = append(c.replies, domain.Text(fmt.Sprintf(format, args...)))
}

func (r *Router) Handle(ctx context.Context, request commanddto.Request) (commanddto.Response, error) {
	userID := strings.TrimSpace(request.UserID)
	if userID == "" {
		return commanddto.Response{}, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	start := r.clock.Now()
	c := &call{userID: userID, outcome: outcomeOK}
	err := r.tx.Within(ctx, "user:"+userID, func(ctx context.Context) error {
		return r.route(ctx, c, request.Text)
	})
	if err != nil {
		return commanddto.Response{}, err
	}
	if c.command != "" {
		r.metrics.IncCommand(c.command, c.outcome)
		r.metrics.ObserveCommandDuration(c.command, r.clock.Now().Sub(start).Seconds())
	}
	out := commanddto.Response{Handled: c.handled, Replies: make([]commanddto.Reply, 0, len(c.replies))}
	for _, reply := range c.replies {
		out.Replies = append(out.Replies, commanddto.Reply{
			Kind:     string(reply.Kind),
			Text:     reply.Text,
			Image:    reply.Image,
			MIMEType: reply.MIMEType,
		})
	}
	return out, nil
}

func (r *Router) route(ctx context.Context, c *call, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	first, rest, _ := strings.Cut(text, " ")
	switch {
	case strings.EqualFold(first, r.prefix):
		c.handled = true
		return r.runCommand(ctx, c, strings.TrimSpace(rest), 0)
	case strings.HasPrefix(first, "/") && r.isShortcut(first[1:]):
		c.handled = true
		return r.runCommand(ctx, c, text[1:], 0)
	default:
		return r.continueFlow(ctx, c, text)
	}
}

func (r *Router) isShortcut(word string) bool {
	e, ok := r.table.Load().Lookup(word)
	return ok && e.Shortcut
}

func (r *Router) runCommand(ctx context.Context, c *call, line string, depth int) error {
	tokens, err := domain.Tokenize(line)
	if err != nil {
		c.command = "parse"
		c.outcome = outcomeInvalid
		c.say("Could not read that command: %v", err)
		return nil
	}
	if len(tokens) == 0 {
		c.command = "help"
		r.help(c)
		return nil
	}
	word, args := tokens[0], tokens[1:]
	entry, ok := r.table.Load().Lookup(word)
	if !ok {
		c.command = "unknown"
		c.outcome = outcomeUnknown
		msg := fmt.Sprintf("Unknown command %q.", word)
		if suggestions := r.table.Load().Suggest(word); len(suggestions) > 0 {
			msg += " Did you mean: " + strings.Join(suggestions, ", ") + "?"
		}
		c.say("%s Try %s help.", msg, r.prefix)
		return nil
	}
	if entry.Admin && !r.isAdmin(c.userID) {
		c.command = entry.Name
		c.outcome = outcomeDenied
		c.say("Permission denied: only admins can use %s %s.", r.prefix, entry.Name)
		return nil
	}
	if entry.Shortcut {
		return r.runShortcut(ctx, c, entry, args, depth)
	}
	c.command = entry.Name
	if err := r.dispatch(ctx, c, entry.Name, args); err != nil {
		return r.fail(ctx, c, err)
	}
	return nil
}

func (r *Router) runShortcut(ctx context.Context, c *call, entry domain.Entry, args []string, depth int) error {
	c.command = "shortcut"
	if !entry.Active {
		c.outcome = outcomeInvalid
		c.say("Shortcut %s is disabled.", entry.Name)
		return nil
	}
	if depth > 0 {
		c.outcome = outcomeInvalid
		c.say("Shortcut %s points at another shortcut.", entry.Name)
		return nil
	}
	line := entry.Target
	if len(args) > 0 {
		line += " " + domain.Quote(args)
	}
	return r.runCommand(ctx, c, line, depth+1)
}

func (r *Router) dispatch(ctx context.Context, c *call, name string, args []string) error {
	switch name {
	case "help":
		r.help(c)
		return nil
	case "list":
		return r.list(ctx, c, args)
	case "status":
		r.status(ctx, c)
		return nil
	case "history":
		return r.history(ctx, c, args)
	case "reload":
		return r.reload(ctx, c)
	case "install":
		return r.install(ctx, c, args)
	case "update":
		return r.update(ctx, c, args)
	case "delete":
		return r.requestDelete(ctx, c, args)
	case "enable":
		return r.setEnabled(ctx, c, args, true)
	case "disable":
		return r.setEnabled(ctx, c, args, false)
	case "shortcut":
		return r.shortcut(ctx, c, args)
	case "generate":
		return r.startGenerate(ctx, c, args)
	default:
		return fmt.Errorf("command %s has no handler", name)
	}
}

// fail renders err for the user. Only errors that do not fit a known kind
// are logged.
func (r *Router) fail(ctx context.Context, c *call, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, apperrors.ErrPermissionDenied):
		c.outcome = outcomeDenied
		c.say("Permission denied.")
	case errors.Is(err, apperrors.ErrNotFound):
		c.outcome = outcomeNotFound
		c.say("%s", sentence(err))
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.outcome = outcomeInvalid
		c.say("%s", sentence(err))
	default:
		c.outcome = outcomeError
		r.logger.ErrorContext(ctx, "command failed", "command", c.command, "user", c.userID, "err", err)
		c.say("Something went wrong while running %s. Check the logs for details.", c.command)
	}
	return nil
}

// sentence capitalizes the first letter of err's message.
func sentence(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: usage: %s", apperrors.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// withPack serializes work on one pack name across users.
func (r *Router) withPack(ctx context.Context, name string, fn func(context.Context) error) error {
	return r.tx.Within(ctx, "pack:"+name, fn)
}

func (r *Router) progress(ctx context.Context, c *call) func(string) {
	return func(message string) {
		r.logger.DebugContext(ctx, "pack progress", "command", c.command, "user", c.userID, "message", message)
	}
}
