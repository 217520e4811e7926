package feed

import (
	"context"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
)

// DefaultRecent is used when a request asks for zero alarms.
const DefaultRecent = 4

// MaxRecent caps a single RecentAlarms request.
const MaxRecent = 1000

// Service abstracts what the transport reads from the rest of the system.
type Service interface {
	Recent(ctx context.Context, n int) ([]alarm.Alarm, error)
	Tracked() int
}

// Server implements AlarmFeedServer on top of a Service.
type Server struct {
	// service provides the alarm history and engine state.
	service Service
}

// NewServer wires the provided service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// RecentAlarms returns the last n alarms, oldest first.
func (s *Server) RecentAlarms(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.ListValue, error) {
	n := int(req.GetValue())

	switch {
	case n == 0:
		n = DefaultRecent
	case n > MaxRecent:
		return nil, status.Errorf(codes.InvalidArgument, "at most %d alarms per request", MaxRecent)
	}

	recent, err := s.service.Recent(ctx, n)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to read recent alarms", "error", err)

		return nil, status.Error(codes.Internal, "unable to read alarms")
	}

	list, err := AlarmsToList(recent)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode alarms")
	}

	return list, nil
}

// TrackedVessels returns the number of vessels in the engine state.
func (s *Server) TrackedVessels(context.Context, *emptypb.Empty) (*wrapperspb.UInt32Value, error) {
	tracked := min(max(int64(s.service.Tracked()), 0), math.MaxUint32)

	return wrapperspb.UInt32(uint32(tracked)), nil //nolint:gosec // Clamped above.
}
