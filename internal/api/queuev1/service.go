package queuev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "playqueue.v1.Queue"

const (
	Queue_CreateItem_FullMethodName = "/playqueue.v1.Queue/CreateItem"
	Queue_UpdateItem_FullMethodName = "/playqueue.v1.Queue/UpdateItem"
	Queue_GetItem_FullMethodName    = "/playqueue.v1.Queue/GetItem"
	Queue_DeleteItem_FullMethodName = "/playqueue.v1.Queue/DeleteItem"
	Queue_ListItems_FullMethodName  = "/playqueue.v1.Queue/ListItems"
	Queue_Resort_FullMethodName     = "/playqueue.v1.Queue/Resort"
)

// QueueServer is the server API for the Queue service.
type QueueServer interface {
	CreateItem(context.Context, *CreateItemRequest) (*ItemResponse, error)
	UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error)
	GetItem(context.Context, *GetItemRequest) (*ItemResponse, error)
	DeleteItem(context.Context, *DeleteItemRequest) (*DeleteItemResponse, error)
	ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error)
	Resort(context.Context, *ResortRequest) (*ResortResponse, error)
}

// UnimplementedQueueServer answers every method with codes.Unimplemented.
type UnimplementedQueueServer struct{}

func (UnimplementedQueueServer) CreateItem(context.Context, *CreateItemRequest) (*ItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateItem not implemented")
}
func (UnimplementedQueueServer) UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateItem not implemented")
}
func (UnimplementedQueueServer) GetItem(context.Context, *GetItemRequest) (*ItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetItem not implemented")
}
func (UnimplementedQueueServer) DeleteItem(context.Context, *DeleteItemRequest) (*DeleteItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteItem not implemented")
}
func (UnimplementedQueueServer) ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListItems not implemented")
}
func (UnimplementedQueueServer) Resort(context.Context, *ResortRequest) (*ResortResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Resort not implemented")
}

// RegisterQueueServer attaches srv to s.
func RegisterQueueServer(s grpc.ServiceRegistrar, srv QueueServer) {
	s.RegisterService(&Queue_ServiceDesc, srv)
}

// unary builds a method handler that decodes Req and calls fn.
func unary[Req any, Resp any](fullMethod string, fn func(QueueServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(QueueServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(QueueServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Queue_ServiceDesc is the grpc.ServiceDesc for the Queue service.
var Queue_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueueServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateItem", Handler: unary(Queue_CreateItem_FullMethodName, QueueServer.CreateItem)},
		{MethodName: "UpdateItem", Handler: unary(Queue_UpdateItem_FullMethodName, QueueServer.UpdateItem)},
		{MethodName: "GetItem", Handler: unary(Queue_GetItem_FullMethodName, QueueServer.GetItem)},
		{MethodName: "DeleteItem", Handler: unary(Queue_DeleteItem_FullMethodName, QueueServer.DeleteItem)},
		{MethodName: "ListItems", Handler: unary(Queue_ListItems_FullMethodName, QueueServer.ListItems)},
		{MethodName: "Resort", Handler: unary(Queue_Resort_FullMethodName, QueueServer.Resort)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "playqueue/v1/queue.json",
}

// QueueClient is the client API for the Queue service.
type QueueClient interface {
	CreateItem(ctx context.Context, in *CreateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error)
	UpdateItem(ctx context.Context, in *UpdateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error)
	GetItem(ctx context.Context, in *GetItemRequest, opts ...grpc.CallOption) (*ItemResponse, error)
	DeleteItem(ctx context.Context, in *DeleteItemRequest, opts ...grpc.CallOption) (*DeleteItemResponse, error)
	ListItems(ctx context.Context, in *ListItemsRequest, opts ...grpc.CallOption) (*ListItemsResponse, error)
	Resort(ctx context.Context, in *ResortRequest, opts ...grpc.CallOption) (*ResortResponse, error)
}

type queueClient struct {
	cc grpc.ClientConnInterface
}

// NewQueueClient returns a client that always speaks the JSON codec.
func NewQueueClient(cc grpc.ClientConnInterface) QueueClient {
	return &queueClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *queueClient) CreateItem(ctx context.Context, in *CreateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c.cc, Queue_CreateItem_FullMethodName, in, opts)
}

func (c *queueClient) UpdateItem(ctx context.Context, in *UpdateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c.cc, Queue_UpdateItem_FullMethodName, in, opts)
}

func (c *queueClient) GetItem(ctx context.Context, in *GetItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c.cc, Queue_GetItem_FullMethodName, in, opts)
}

func (c *queueClient) DeleteItem(ctx context.Context, in *DeleteItemRequest, opts ...grpc.CallOption) (*DeleteItemResponse, error) {
	return invoke[DeleteItemResponse](ctx, c.cc, Queue_DeleteItem_FullMethodName, in, opts)
}

func (c *queueClient) ListItems(ctx context.Context, in *ListItemsRequest, opts ...grpc.CallOption) (*ListItemsResponse, error) {
	return invoke[ListItemsResponse](ctx, c.cc, Queue_ListItems_FullMethodName, in, opts)
}

func (c *queueClient) Resort(ctx context.Context, in *ResortRequest, opts ...grpc.CallOption) (*ResortResponse, error) {
	return invoke[ResortResponse](ctx, c.cc, Queue_Resort_FullMethodName, in, opts)
}
