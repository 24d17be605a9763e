package usecase

import (
	"context"
	"fmt"

	"memestickers/internal/modules/session/domain"
	sessiondto "memestickers/internal/modules/session/dto"
	sessionin "memestickers/internal/modules/session/port/in"
	"memestickers/internal/modules/session/service"
	apperrors "memestickers/internal/platform/errors"
)

type Interactor struct {
	svc *service.SessionService
}

func NewInteractor(svc *service.SessionService) sessionin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Create(ctx context.Context, input sessiondto.CreateInput) (sessiondto.SessionOutput, error) {
	session, replaced, err := i.svc.Create(ctx, input.UserID, domain.SessionType(input.Type), input.Data)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	out := toOutput(session)
	out.Replaced = replaced
	return out, nil
}

func (i *Interactor) Get(ctx context.Context, userID string) (sessiondto.SessionOutput, bool, error) {
	session, ok, err := i.svc.Get(ctx, userID)
	if err != nil || !ok {
		return sessiondto.SessionOutput{}, false, err
	}
	return toOutput(session), true, nil
}

// Save replaces the data of the caller's live session.
func (i *Interactor) Save(ctx context.Context, input sessiondto.SaveInput) (sessiondto.SessionOutput, error) {
	session, ok, err := i.svc.Get(ctx, input.UserID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	if !ok {
		return sessiondto.SessionOutput{}, fmt.Errorf("session for %s: %w", input.UserID, apperrors.ErrNotFound)
	}
	session.Data = make(map[string]string, len(input.Data))
	for k, v := range input.Data {
		session.Data[k] = v
	}
	if err := i.svc.Save(ctx, session); err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func (i *Interactor) Clear(ctx context.Context, userID string) error {
	return i.svc.Clear(ctx, userID)
}

func (i *Interactor) Sweep(ctx context.Context) (int, error) {
	return i.svc.Sweep(ctx)
}

func toOutput(s domain.UserSession) sessiondto.SessionOutput {
	data := make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		data[k] = v
	}
	return sessiondto.SessionOutput{
		UserID:    s.UserID,
		Type:      string(s.Type),
		Data:      data,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}
