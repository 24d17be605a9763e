package in

import (
	"context"

	"memestickers/internal/modules/command/dto"
)

type Usecase interface {
	Handle(ctx context.Context, request dto.Request) (dto.Response, error)
	Commands(ctx context.Context) ([]dto.CommandInfo, error)
	// Refresh rebuilds the shortcut entries of the command table.
	Refresh(ctx context.Context) error
}
