package grpcserver

import (
	"errors"

	"github.com/and161185/playqueue/internal/errs"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain tags ErrorInfo details produced by this server.
const ErrorDomain = "playqueue"

// Reasons carried in ErrorInfo details.
const (
	ReasonWrongUserAfter       = "WRONG_USER_AFTER"
	ReasonAfterItemUnpersisted = "AFTER_ITEM_UNPERSISTED"
	ReasonRangeViolation       = "POSITION_RANGE_VIOLATION"
)

// toStatus maps a service error to a gRPC status once, at the edge.
func toStatus(op string, err error) error {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		br := &errdetails.BadRequest{}
		for _, f := range ve.Fields {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       f.Field,
				Description: f.Detail,
			})
		}
		return detailed(status.New(codes.InvalidArgument, ve.Error()).WithDetails(br))
	case errors.Is(err, errs.ErrWrongUserAfter):
		return detailed(status.New(codes.FailedPrecondition, err.Error()).WithDetails(info(ReasonWrongUserAfter)))
	case errors.Is(err, errs.ErrAfterItemUnpersisted):
		return detailed(status.New(codes.FailedPrecondition, err.Error()).WithDetails(info(ReasonAfterItemUnpersisted)))
	case errors.Is(err, errs.ErrRangeViolation):
		return detailed(status.New(codes.OutOfRange, err.Error()).WithDetails(info(ReasonRangeViolation)))
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrVersionConflict):
		return status.Error(codes.Aborted, "concurrent modification, retry")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "no auth")
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

func info(reason string) *errdetails.ErrorInfo {
	return &errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}
}

func detailed(st *status.Status, err error) error {
	if err != nil {
		return status.Errorf(codes.Internal, "attach details: %v", err)
	}
	return st.Err()
}
