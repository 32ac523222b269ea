package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "liquidation.v1.LiquidationService"

// LiquidationServer is the server API of liquidation.v1.LiquidationService.
// Messages are well-known protobuf types so no generated code is required.
type LiquidationServer interface {
	ExtractFields(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecognizePage(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	SubmitDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRecord(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LiquidationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ExtractFields", LiquidationServer.ExtractFields),
		unary("RecognizePage", LiquidationServer.RecognizePage),
		unary("SubmitDocument", LiquidationServer.SubmitDocument),
		unary("SubmitDirectory", LiquidationServer.SubmitDirectory),
		unary("GetDocument", LiquidationServer.GetDocument),
		unary("ExportRecord", LiquidationServer.ExportRecord),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

// RegisterLiquidationServer registers srv on s.
func RegisterLiquidationServer(s grpc.ServiceRegistrar, srv LiquidationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary[Req, Resp any](name string, call func(LiquidationServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LiquidationServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LiquidationServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client is a thin client for LiquidationService over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ExtractFields(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, fullMethod("ExtractFields"), in, out, opts...)
}

func (c *Client) RecognizePage(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, fullMethod("RecognizePage"), in, out, opts...)
}

func (c *Client) SubmitDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, fullMethod("SubmitDocument"), in, out, opts...)
}

func (c *Client) SubmitDirectory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, fullMethod("SubmitDirectory"), in, out, opts...)
}

func (c *Client) GetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, fullMethod("GetDocument"), in, out, opts...)
}

func (c *Client) ExportRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	return out, c.cc.Invoke(ctx, fullMethod("ExportRecord"), in, out, opts...)
}
