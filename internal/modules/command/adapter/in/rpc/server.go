package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"memestickers/internal/modules/command/dto"
	commandin "memestickers/internal/modules/command/port/in"
	apperrors "memestickers/internal/platform/errors"
)

// Server exposes a command usecase to a chat host over the plugin protocol.
type Server struct {
	usecase  commandin.Usecase
	metadata Metadata
}

func NewServer(usecase commandin.Usecase, metadata Metadata) *Server {
	return &Server{usecase: usecase, metadata: metadata}
}

var _ StickerPluginServer = (*Server)(nil)

func (s *Server) GetMetadata(_ context.Context, _ *Empty) (*Metadata, error) {
	meta := s.metadata
	meta.Capabilities = append([]string(nil), s.metadata.Capabilities...)
	return &meta, nil
}

func (s *Server) ListCommands(ctx context.Context, _ *Empty) (*ListCommandsResponse, error) {
	commands, err := s.usecase.Commands(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListCommandsResponse{Commands: make([]CommandDescriptor, 0, len(commands))}
	for _, c := range commands {
		out.Commands = append(out.Commands, CommandDescriptor{
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

func (s *Server) Handle(ctx context.Context, in *HandleRequest) (*HandleResponse, error) {
	resp, err := s.usecase.Handle(ctx, dto.Request{UserID: in.UserID, Text: in.Text})
	if err != nil {
		return nil, toStatus(err)
	}
	out := &HandleResponse{Handled: resp.Handled, Replies: make([]ReplyMessage, 0, len(resp.Replies))}
	for _, r := range resp.Replies {
		out.Replies = append(out.Replies, ReplyMessage{Kind: r.Kind, Text: r.Text, Image: r.Image, MIMEType: r.MIMEType})
	}
	return out, nil
}

func (s *Server) Refresh(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := s.usecase.Refresh(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// FromStatus restores the error kinds toStatus encoded.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var kind error
	switch st.Code() {
	case codes.InvalidArgument:
		kind = apperrors.ErrInvalidInput
	case codes.NotFound:
		kind = apperrors.ErrNotFound
	case codes.PermissionDenied:
		kind = apperrors.ErrPermissionDenied
	case codes.DeadlineExceeded:
		kind = context.DeadlineExceeded
	case codes.Canceled:
		kind = context.Canceled
	default:
		return err
	}
	return &remoteError{kind: kind, message: st.Message()}
}

type remoteError struct {
	kind    error
	message string
}

func (e *remoteError) Error() string { return e.message }
func (e *remoteError) Unwrap() error { return e.kind }
