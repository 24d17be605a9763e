package out

import (
	"context"
	"fmt"
	"os"

	commandout "memestickers/internal/modules/command/port/out"
)

// PassthroughRenderer returns the sticker unchanged. Drawing belongs to the
// chat host, which receives the text and options alongside the image.
type PassthroughRenderer struct{}

func NewPassthroughRenderer() commandout.Renderer {
	return PassthroughRenderer{}
}

func (PassthroughRenderer) Render(ctx context.Context, request commandout.RenderRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(request.Source) > 0 {
		return append([]byte(nil), request.Source...), nil
	}
	if request.ImagePath == "" {
		return nil, fmt.Errorf("render: no image")
	}
	payload, err := os.ReadFile(request.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("render: read image: %w", err)
	}
	return payload, nil
}
