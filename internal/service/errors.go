package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsettle/internal/models"
)

// codeOf maps a domain error to its Connect code.
func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, models.ErrNotMember), errors.Is(err, models.ErrNotOwner):
		return connect.CodePermissionDenied
	case errors.Is(err, models.ErrTravelNotFound),
		errors.Is(err, models.ErrExpenseNotFound),
		errors.Is(err, models.ErrSettlementNotFound):
		return connect.CodeNotFound
	case errors.Is(err, models.ErrNothingToSettle):
		return connect.CodeFailedPrecondition
	case errors.Is(err, models.ErrAlreadyMember):
		return connect.CodeAlreadyExists
	case errors.Is(err, models.ErrInvalidTravel),
		errors.Is(err, models.ErrInvalidExpense),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidCurrency):
		return connect.CodeInvalidArgument
	case errors.Is(err, models.ErrRateUnavailable), errors.Is(err, context.DeadlineExceeded):
		return connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	default:
		return connect.CodeInternal
	}
}

// toConnectError wraps err for the wire. Internal and unavailable errors are
// logged with the operation name before their details are hidden.
func toConnectError(op string, err error) error {
	code := codeOf(err)
	switch code {
	case connect.CodeInternal:
		slog.Error(op+" failed", "error", err)
		return connect.NewError(code, errors.New("internal error"))
	case connect.CodeUnavailable:
		slog.Warn(op+" unavailable", "error", err)
	}
	return connect.NewError(code, err)
}
