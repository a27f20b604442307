package handlers

import (
	"context"
	"errors"
	"net"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
)

func (s ErrorSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// HandlerError represents a structured error with user message and logging info
type HandlerError struct {
	Err         error
	UserMessage string
	LogMessage  string
	Severity    ErrorSeverity
}

// classifyHandlerError maps an error to what the user sees and how it is logged
func classifyHandlerError(err error) *HandlerError {
	switch {
	case err == nil:
		return &HandlerError{UserMessage: render.ErrGeneric, LogMessage: "unknown error", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrMissingField):
		return &HandlerError{Err: err, UserMessage: render.MsgTextOnly, LogMessage: "empty message", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrSessionNotFound):
		return &HandlerError{Err: err, UserMessage: render.MsgEmptyHistory, LogMessage: "session not found", Severity: SeverityWarning}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, entity.ErrIndexUnavailable):
		return &HandlerError{Err: err, UserMessage: render.ErrUnavailable, LogMessage: "upstream unavailable", Severity: SeverityError}
	case errors.Is(err, entity.ErrQueryFailure):
		return &HandlerError{Err: err, UserMessage: render.ErrProcessing, LogMessage: "chat processing failed", Severity: SeverityError}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &HandlerError{Err: err, UserMessage: render.ErrUnavailable, LogMessage: "network error", Severity: SeverityError}
	}

	return &HandlerError{Err: err, UserMessage: render.ErrGeneric, LogMessage: "handler error", Severity: SeverityError}
}

// HandleError logs err with its severity and tells the user what happened
func HandleError(ctx context.Context, sender *MessageSender, chatID int64, err error) {
	if err == nil {
		return
	}

	handlerErr := classifyHandlerError(err)
	fields := []zap.Field{zap.Error(handlerErr.Err), zap.Int64("chat_id", chatID)}

	if handlerErr.Severity == SeverityWarning {
		ctxzap.Warn(ctx, handlerErr.LogMessage, fields...)
	} else {
		ctxzap.Error(ctx, handlerErr.LogMessage, fields...)
	}

	_ = sender.Send(chatID, handlerErr.UserMessage)
}
