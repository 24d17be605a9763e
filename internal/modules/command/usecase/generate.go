package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"memestickers/internal/modules/command/domain"
	commandout "memestickers/internal/modules/command/port/out"
	"memestickers/internal/modules/command/service"
	sessiondto "memestickers/internal/modules/session/dto"
	apperrors "memestickers/internal/platform/errors"
)

type sessionType string

const (
	sessionDeleteConfirm sessionType = "delete_confirm"
	sessionGenerate      sessionType = "generate"
)

const (
	stepPack    = "pack"
	stepSticker = "sticker"
	stepText    = "text"
)

// generateState is what a guided generate flow remembers between messages.
type generateState struct {
	pack    string
	sticker string
	text    string
	params  domain.TextParams
}

func (s generateState) data(step string) map[string]string {
	return map[string]string{
		"step":    step,
		"pack":    s.pack,
		"sticker": s.sticker,
		"flags":   domain.Quote(s.params.Args()),
	}
}

func stateFromData(data map[string]string) (generateState, error) {
	state := generateState{pack: data["pack"], sticker: data["sticker"]}
	tokens, err := domain.Tokenize(data["flags"])
	if err != nil {
		return generateState{}, err
	}
	_, params, err := domain.ParseGenerateArgs(tokens)
	if err != nil {
		return generateState{}, err
	}
	state.params = params
	return state, nil
}

func (r *Router) startGenerate(ctx context.Context, c *call, args []string) error {
	positional, params, err := domain.ParseGenerateArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	state := generateState{params: params}
	if len(positional) > 0 {
		state.pack = positional[0]
	}
	if len(positional) > 1 {
		state.sticker = positional[1]
	}
	if len(positional) > 2 {
		state.text = strings.Join(positional[2:], " ")
	}
	return r.advanceGenerate(ctx, c, state, false)
}

// advanceGenerate validates what state holds so far and either asks for the
// next missing piece or renders the sticker. Inside a session a bad answer
// is reported and asked for again.
func (r *Router) advanceGenerate(ctx context.Context, c *call, state generateState, inSession bool) error {
	if state.pack != "" {
		pack, err := r.lookupPack(ctx, state.pack)
		switch {
		case err != nil && inSession && errors.Is(err, apperrors.ErrNotFound):
			c.say("%s", sentence(err))
			state.pack = ""
		case err != nil:
			return err
		case !pack.Enabled:
			c.outcome = outcomeInvalid
			c.say("Pack %s is disabled.", pack.Name)
			return r.sessions.Clear(ctx, c.userID)
		default:
			state.pack = pack.Name
		}
	}
	if state.pack == "" {
		return r.askPack(ctx, c, state, inSession)
	}

	if state.sticker != "" {
		if _, ok := r.packs.Sticker(ctx, state.pack, state.sticker); !ok {
			names, err := r.stickerNames(ctx, state.pack)
			if err != nil {
				return err
			}
			missing := notFound("sticker", state.sticker, service.Suggest(state.sticker, names))
			if !inSession {
				return missing
			}
			c.say("%s", sentence(missing))
			state.sticker = ""
		}
	}
	if state.sticker == "" {
		return r.askSticker(ctx, c, state, inSession)
	}

	if strings.TrimSpace(state.text) == "" {
		c.say("Enter the text to put on %s. Reply exit to cancel.", state.sticker)
		return r.remember(ctx, c, state, stepText, inSession)
	}
	return r.render(ctx, c, state)
}

func (r *Router) askPack(ctx context.Context, c *call, state generateState, inSession bool) error {
	packs, err := r.packs.ListPacks(ctx)
	if err != nil {
		return err
	}
	var names []string
	for _, p := range packs {
		if p.Enabled {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		c.say("No sticker packs available")
		return r.sessions.Clear(ctx, c.userID)
	}
	c.say("Which pack? Available: %s. Reply exit to cancel.", strings.Join(names, ", "))
	return r.remember(ctx, c, state, stepPack, inSession)
}

func (r *Router) askSticker(ctx context.Context, c *call, state generateState, inSession bool) error {
	names, err := r.stickerNames(ctx, state.pack)
	if err != nil {
		return err
	}
	c.say("Which sticker from %s? Available: %s. Reply exit to cancel.", state.pack, strings.Join(names, ", "))
	return r.remember(ctx, c, state, stepSticker, inSession)
}

func (r *Router) stickerNames(ctx context.Context, packName string) ([]string, error) {
	pack, err := r.packs.GetPack(ctx, packName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pack.Stickers))
	for _, s := range pack.Stickers {
		names = append(names, s.Name)
	}
	return names, nil
}

// remember stores state for the next message, opening a session when the
// flow starts from a command.
func (r *Router) remember(ctx context.Context, c *call, state generateState, step string, inSession bool) error {
	if inSession {
		_, err := r.sessions.Save(ctx, sessiondto.SaveInput{UserID: c.userID, Data: state.data(step)})
		return err
	}
	session, err := r.sessions.Create(ctx, sessiondto.CreateInput{
		UserID: c.userID,
		Type:   string(sessionGenerate),
		Data:   state.data(step),
	})
	if err != nil {
		return err
	}
	if session.Replaced {
		c.say("Your previous pending step was cancelled.")
	}
	return nil
}

func (r *Router) render(ctx context.Context, c *call, state generateState) error {
	// Any outcome ends the flow.
	if err := r.sessions.Clear(ctx, c.userID); err != nil {
		return err
	}
	if r.renderer == nil {
		return errors.New("no renderer configured")
	}
	file, ok := r.packs.Sticker(ctx, state.pack, state.sticker)
	if !ok {
		return notFound("sticker", state.sticker, nil)
	}
	size := state.params.Size
	if size == 0 {
		size = r.fontSize
	}
	params := state.params
	if params.Color == "" {
		params.Color = r.textColor
	}
	if params.StrokeColor == "" {
		params.StrokeColor = r.outlineColor
	}
	payload, err := r.renderer.Render(ctx, commandout.RenderRequest{
		ImagePath:  file.Path,
		Source:     file.Bytes,
		Text:       state.text,
		Params:     params,
		FontFamily: r.fontFamily,
		FontSize:   size,
	})
	if err != nil {
		return fmt.Errorf("render %s/%s: %w", state.pack, state.sticker, err)
	}
	c.replies = append(c.replies, domain.Image(payload, http.DetectContentType(payload)))
	if state.params.Debug {
		c.say("pack=%s sticker=%s text=%q options=%s", state.pack, state.sticker, state.text, domain.Quote(state.params.Args()))
	}
	return nil
}

// continueFlow feeds a message that is not a command into the user's
// pending session. Without one the message is left unhandled.
func (r *Router) continueFlow(ctx context.Context, c *call, text string) error {
	session, ok, err := r.sessions.Get(ctx, c.userID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	c.handled = true
	c.command = "flow:" + session.Type
	if domain.IsCancelWord(text) {
		if err := r.sessions.Clear(ctx, c.userID); err != nil {
			return err
		}
		c.say("Cancelled.")
		return nil
	}

	var flowErr error
	switch sessionType(session.Type) {
	case sessionDeleteConfirm:
		flowErr = r.confirmDelete(ctx, c, session.Data["pack"], text)
	case sessionGenerate:
		flowErr = r.continueGenerate(ctx, c, session.Data, text)
	default:
		r.logger.WarnContext(ctx, "dropping session of unknown type", "user", c.userID, "type", session.Type)
		c.handled = false
		c.command = ""
		return r.sessions.Clear(ctx, c.userID)
	}
	if flowErr != nil {
		return r.fail(ctx, c, flowErr)
	}
	return nil
}

func (r *Router) continueGenerate(ctx context.Context, c *call, data map[string]string, text string) error {
	state, err := stateFromData(data)
	if err != nil {
		_ = r.sessions.Clear(ctx, c.userID)
		return err
	}
	switch data["step"] {
	case stepPack:
		state.pack = text
	case stepSticker:
		state.sticker = text
	case stepText:
		state.text = text
	default:
		_ = r.sessions.Clear(ctx, c.userID)
		return fmt.Errorf("generate session has unknown step %q", data["step"])
	}
	return r.advanceGenerate(ctx, c, state, true)
}
