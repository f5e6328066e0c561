// Package chainrpc serves generated chains over gRPC. Messages are protobuf Structs so the
// service needs no generated code; probabilities and yields travel as decimal strings.
package chainrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "digitalcow.v1.ChainService"

const (
	describeMethod    = "/" + ServiceName + "/Describe"
	successorsMethod  = "/" + ServiceName + "/Successors"
	streamEdgesMethod = "/" + ServiceName + "/StreamEdges"
)

// #region service-interface
// ChainServiceServer is the server API of the chain service.
type ChainServiceServer interface {
	// Describe reports the size and cache key of the chain for the requested limits.
	Describe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Successors lists the states reachable in one day from the requested state.
	Successors(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// StreamEdges sends every edge of the chain in generation order.
	StreamEdges(*structpb.Struct, grpc.ServerStream) error
}

// #endregion service-interface

// #region service-desc
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChainServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Describe", Handler: describeHandler},
		{MethodName: "Successors", Handler: successorsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamEdges", Handler: streamEdgesHandler, ServerStreams: true},
	},
	Metadata: "digitalcow/v1/chain.proto",
}

// RegisterChainServiceServer attaches srv to s.
func RegisterChainServiceServer(s grpc.ServiceRegistrar, srv ChainServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unary(method string, call func(ChainServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChainServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ChainServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	describeHandler   = unary(describeMethod, ChainServiceServer.Describe)
	successorsHandler = unary(successorsMethod, ChainServiceServer.Successors)
)

func streamEdgesHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChainServiceServer).StreamEdges(in, stream)
}

// #endregion service-desc
