package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/core/service"
)

// ActorMetadataKey carries the acting employee id on gRPC calls.
const ActorMetadataKey = "actor-id"

// JSONCodecName is the content-subtype clients select with grpc.CallContentSubtype.
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type CreateOrderRequest struct {
	RequestID  string            `json:"request_id"`
	CustomerID int64             `json:"customer_id"`
	Items      []domain.LineItem `json:"items"`
}

type SetOrderStatusRequest struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type DeleteOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type DeleteOrderResponse struct {
	Deleted bool `json:"deleted"`
}

type GetDashboardRequest struct{}

// OrdersServer is the server API of the visio.v1.Orders service.
type OrdersServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*service.CreateOrderResult, error)
	SetOrderStatus(context.Context, *SetOrderStatusRequest) (*domain.Order, error)
	DeleteOrder(context.Context, *DeleteOrderRequest) (*DeleteOrderResponse, error)
	GetDashboard(context.Context, *GetDashboardRequest) (*domain.Overview, error)
}

func RegisterOrdersServer(s grpc.ServiceRegistrar, srv OrdersServer) {
	s.RegisterService(&ordersServiceDesc, srv)
}

const ordersServiceName = "visio.v1.Orders"

var ordersServiceDesc = grpc.ServiceDesc{
	ServiceName: ordersServiceName,
	HandlerType: (*OrdersServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: unary("CreateOrder", OrdersServer.CreateOrder)},
		{MethodName: "SetOrderStatus", Handler: unary("SetOrderStatus", OrdersServer.SetOrderStatus)},
		{MethodName: "DeleteOrder", Handler: unary("DeleteOrder", OrdersServer.DeleteOrder)},
		{MethodName: "GetDashboard", Handler: unary("GetDashboard", OrdersServer.GetDashboard)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "visio/v1/orders",
}

// unary adapts a typed server method to a grpc.MethodDesc handler.
func unary[Req, Resp any](name string, method func(OrdersServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(OrdersServer)
		if interceptor == nil {
			return method(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ordersServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return method(server, ctx, req.(*Req))
		})
	}
}

// OrdersClient calls visio.v1.Orders with the JSON codec.
type OrdersClient struct {
	cc grpc.ClientConnInterface
}

func NewOrdersClient(cc grpc.ClientConnInterface) *OrdersClient {
	return &OrdersClient{cc: cc}
}

func (c *OrdersClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*service.CreateOrderResult, error) {
	out := new(service.CreateOrderResult)
	return out, c.invoke(ctx, "CreateOrder", in, out, opts)
}

func (c *OrdersClient) SetOrderStatus(ctx context.Context, in *SetOrderStatusRequest, opts ...grpc.CallOption) (*domain.Order, error) {
	out := new(domain.Order)
	return out, c.invoke(ctx, "SetOrderStatus", in, out, opts)
}

func (c *OrdersClient) DeleteOrder(ctx context.Context, in *DeleteOrderRequest, opts ...grpc.CallOption) (*DeleteOrderResponse, error) {
	out := new(DeleteOrderResponse)
	return out, c.invoke(ctx, "DeleteOrder", in, out, opts)
}

func (c *OrdersClient) GetDashboard(ctx context.Context, in *GetDashboardRequest, opts ...grpc.CallOption) (*domain.Overview, error) {
	out := new(domain.Overview)
	return out, c.invoke(ctx, "GetDashboard", in, out, opts)
}

func (c *OrdersClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ordersServiceName+"/"+method, in, out, opts...)
}

type GRPCHandler struct {
	orders  *service.OrderService
	reports *service.ReportService
}

func NewGRPCHandler(svc Services) *GRPCHandler {
	return &GRPCHandler{orders: svc.Orders, reports: svc.Reports}
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*service.CreateOrderResult, error) {
	actor, err := grpcActor(ctx)
	if err != nil {
		return nil, err
	}
	result, err := h.orders.CreateOrder(ctx, service.CreateOrderInput{
		RequestID:  req.RequestID,
		CustomerID: req.CustomerID,
		Items:      req.Items,
		CreatedBy:  actor,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return result, nil
}

func (h *GRPCHandler) SetOrderStatus(ctx context.Context, req *SetOrderStatusRequest) (*domain.Order, error) {
	st, _ := domain.ParseOrderStatus(req.Status)
	order, err := h.orders.SetStatus(ctx, req.OrderID, st)
	if err != nil {
		return nil, grpcError(err)
	}
	return order, nil
}

func (h *GRPCHandler) DeleteOrder(ctx context.Context, req *DeleteOrderRequest) (*DeleteOrderResponse, error) {
	if err := h.orders.DeleteOrder(ctx, req.OrderID); err != nil {
		return nil, grpcError(err)
	}
	return &DeleteOrderResponse{Deleted: true}, nil
}

func (h *GRPCHandler) GetDashboard(ctx context.Context, _ *GetDashboardRequest) (*domain.Overview, error) {
	overview, err := h.reports.Overview(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	return overview, nil
}

func grpcActor(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, nil
	}
	values := md.Get(ActorMetadataKey)
	if len(values) == 0 || values[0] == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil || id < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s %q", ActorMetadataKey, values[0])
	}
	return id, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrConsistency), errors.Is(err, domain.ErrOrderNumberExhausted):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
