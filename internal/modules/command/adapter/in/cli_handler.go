package in

import (
	"context"

	"memestickers/internal/modules/command/dto"
	commandin "memestickers/internal/modules/command/port/in"
)

// CLIHandler drives the router from a terminal, standing in for a chat
// platform.
type CLIHandler struct {
	usecase commandin.Usecase
}

func NewCLIHandler(usecase commandin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Send(ctx context.Context, userID, text string) (dto.Response, error) {
	return h.usecase.Handle(ctx, dto.Request{UserID: userID, Text: text})
}

func (h CLIHandler) Commands(ctx context.Context) ([]dto.CommandInfo, error) {
	return h.usecase.Commands(ctx)
}

func (h CLIHandler) Refresh(ctx context.Context) error {
	return h.usecase.Refresh(ctx)
}
