package in

import (
	"context"

	"memestickers/internal/modules/session/dto"
)

type Usecase interface {
	Create(ctx context.Context, input dto.CreateInput) (dto.SessionOutput, error)
	Get(ctx context.Context, userID string) (dto.SessionOutput, bool, error)
	Save(ctx context.Context, input dto.SaveInput) (dto.SessionOutput, error)
	Clear(ctx context.Context, userID string) error
	Sweep(ctx context.Context) (int, error)
}
