package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// JobsServiceName is the fully qualified gRPC service name.
const JobsServiceName = "contracts.v1.JobsService"

const (
	methodSubmit      = "/" + JobsServiceName + "/Submit"
	methodGetStatus   = "/" + JobsServiceName + "/GetStatus"
	methodCancel      = "/" + JobsServiceName + "/Cancel"
	methodExport      = "/" + JobsServiceName + "/Export"
	methodGetArchived = "/" + JobsServiceName + "/GetArchived"
)

// JobsServiceServer drives the job manager over gRPC. Messages are protobuf
// well-known types so no generated code is needed.
type JobsServiceServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Cancel(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	Export(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	GetArchived(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterJobsServiceServer(s grpc.ServiceRegistrar, srv JobsServiceServer) {
	s.RegisterService(&JobsService_ServiceDesc, srv)
}

// unary builds a method handler decoding into a fresh Req.
func unary[Req any, Resp any](fullMethod string, call func(JobsServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(JobsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(JobsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var JobsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: JobsServiceName,
	HandlerType: (*JobsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: unary(methodSubmit, JobsServiceServer.Submit)},
		{MethodName: "GetStatus", Handler: unary(methodGetStatus, JobsServiceServer.GetStatus)},
		{MethodName: "Cancel", Handler: unary(methodCancel, JobsServiceServer.Cancel)},
		{MethodName: "Export", Handler: unary(methodExport, JobsServiceServer.Export)},
		{MethodName: "GetArchived", Handler: unary(methodGetArchived, JobsServiceServer.GetArchived)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contracts/v1/jobs.proto",
}

// JobsServiceClient is the client side of JobsService.
type JobsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewJobsServiceClient(cc grpc.ClientConnInterface) *JobsServiceClient {
	return &JobsServiceClient{cc: cc}
}

func (c *JobsServiceClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSubmit, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobsServiceClient) GetStatus(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStatus, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobsServiceClient) Cancel(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, methodCancel, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobsServiceClient) Export(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodExport, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobsServiceClient) GetArchived(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetArchived, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
