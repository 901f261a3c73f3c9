// Package remote holds the gRPC contract of the report service and a client
// for it. Payloads travel as google.protobuf.Struct mirroring the JSON
// documents served over HTTP.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

const (
	ServiceName = "sales.v1.ReportService"

	MethodPersonalStats = "PersonalStats"
	MethodSquadStats    = "SquadStats"
	MethodLeaderboard   = "Leaderboard"

	// AuthMetadataKey carries "Bearer <token>".
	AuthMetadataKey = "authorization"
)

// FullMethod returns the RPC path of method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// ReportRequest is the decoded form of every report call.
type ReportRequest struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ToStruct converts any JSON-encodable value into a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return st, nil
}

// FromStruct decodes st into dst through its JSON form.
func FromStruct(st *structpb.Struct, dst any) error {
	if st == nil {
		return errors.New("empty payload")
	}
	b, err := protojson.Marshal(st)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// Status maps core errors onto gRPC status codes.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, apperr.ErrInvalidRole):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, apperr.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

// mapError turns a gRPC status back into the matching core sentinel.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}
	var kind error
	switch st.Code() {
	case codes.NotFound:
		kind = apperr.ErrNotFound
	case codes.AlreadyExists:
		kind = apperr.ErrConflict
	case codes.FailedPrecondition:
		kind = apperr.ErrInvalidRole
	case codes.InvalidArgument:
		kind = apperr.ErrInvalidInput
	case codes.PermissionDenied:
		kind = apperr.ErrForbidden
	default:
		return err
	}
	return fmt.Errorf("%w: %s", kind, st.Message())
}
