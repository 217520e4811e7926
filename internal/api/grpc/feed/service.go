package feed

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Fully qualified names of the feed service and its methods.
const (
	ServiceName          = "maritimealarm.v1.AlarmFeed"
	RecentAlarmsMethod   = "/" + ServiceName + "/RecentAlarms"
	TrackedVesselsMethod = "/" + ServiceName + "/TrackedVessels"
)

// AlarmFeedServer is the server API of the alarm feed.
type AlarmFeedServer interface {
	RecentAlarms(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.ListValue, error)
	TrackedVessels(ctx context.Context, req *emptypb.Empty) (*wrapperspb.UInt32Value, error)
}

// ServiceDesc describes the alarm feed for grpc.Server registration.
//
//nolint:gochecknoglobals // Service descriptors are package level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmFeedServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RecentAlarms",
			Handler:    recentAlarmsHandler,
		},
		{
			MethodName: "TrackedVessels",
			Handler:    trackedVesselsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "maritimealarm/v1/feed.proto",
}

// Register attaches srv to the registrar.
func Register(registrar grpc.ServiceRegistrar, srv AlarmFeedServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

func recentAlarmsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmFeedServer).RecentAlarms(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RecentAlarmsMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmFeedServer).RecentAlarms(ctx, req.(*wrapperspb.UInt32Value))
	}

	return interceptor(ctx, in, info, handler)
}

func trackedVesselsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmFeedServer).TrackedVessels(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TrackedVesselsMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmFeedServer).TrackedVessels(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

// Client calls the alarm feed over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// RecentAlarms fetches the last n alarms.
func (c *Client) RecentAlarms(
	ctx context.Context,
	in *wrapperspb.UInt32Value,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, RecentAlarmsMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// TrackedVessels fetches the tracked vessel count.
func (c *Client) TrackedVessels(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*wrapperspb.UInt32Value, error) {
	out := new(wrapperspb.UInt32Value)
	if err := c.cc.Invoke(ctx, TrackedVesselsMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
