package out

import (
	"context"

	"memestickers/internal/modules/command/domain"
)

type RenderRequest struct {
	ImagePath  string
	Source     []byte
	Text       string
	Params     domain.TextParams
	FontFamily string
	FontSize   int
}

// Renderer draws text onto a sticker image and returns the encoded result.
type Renderer interface {
	Render(ctx context.Context, request RenderRequest) ([]byte, error)
}
