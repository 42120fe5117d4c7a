// Package grpcserver exposes the queue service over gRPC.
package grpcserver

import (
	"context"

	"github.com/and161185/playqueue/internal/api/queuev1"
	"github.com/and161185/playqueue/internal/auth"
	"github.com/and161185/playqueue/internal/convert"
	"github.com/and161185/playqueue/internal/service"
	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server wires the item service into gRPC handlers.
type Server struct {
	queuev1.UnimplementedQueueServer
	items service.ItemService
}

// New constructs a gRPC server with the injected service.
func New(items service.ItemService) *Server {
	return &Server{items: items}
}

func owner(ctx context.Context) (uuid.UUID, error) {
	id, ok := auth.OwnerIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "no auth")
	}
	return id, nil
}

// CreateItem stores a new item or updates the one with the same identifier.
func (s *Server) CreateItem(ctx context.Context, req *queuev1.CreateItemRequest) (*queuev1.ItemResponse, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}
	in, err := convert.FromCreate(req.Item)
	if err != nil {
		return nil, toStatus("create", err)
	}
	it, err := s.items.Create(ctx, ownerID, in)
	if err != nil {
		return nil, toStatus("create", err)
	}
	return &queuev1.ItemResponse{Item: convert.ToItem(*it)}, nil
}

// UpdateItem applies a partial change.
func (s *Server) UpdateItem(ctx context.Context, req *queuev1.UpdateItemRequest) (*queuev1.ItemResponse, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus("update", err)
	}
	patch, err := convert.FromPatch(req.Item)
	if err != nil {
		return nil, toStatus("update", err)
	}
	it, err := s.items.Update(ctx, ownerID, id, patch)
	if err != nil {
		return nil, toStatus("update", err)
	}
	return &queuev1.ItemResponse{Item: convert.ToItem(*it)}, nil
}

// GetItem returns a single item by id.
func (s *Server) GetItem(ctx context.Context, req *queuev1.GetItemRequest) (*queuev1.ItemResponse, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus("get item", err)
	}
	it, err := s.items.Get(ctx, ownerID, id)
	if err != nil {
		return nil, toStatus("get item", err)
	}
	return &queuev1.ItemResponse{Item: convert.ToItem(*it)}, nil
}

// DeleteItem removes an item.
func (s *Server) DeleteItem(ctx context.Context, req *queuev1.DeleteItemRequest) (*queuev1.DeleteItemResponse, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus("delete", err)
	}
	if err := s.items.Delete(ctx, ownerID, id); err != nil {
		return nil, toStatus("delete", err)
	}
	return &queuev1.DeleteItemResponse{}, nil
}

// ListItems returns one page of the ordered view.
func (s *Server) ListItems(ctx context.Context, req *queuev1.ListItemsRequest) (*queuev1.ListItemsResponse, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}
	q, err := convert.FromListRequest(req)
	if err != nil {
		return nil, toStatus("list", err)
	}
	page, err := s.items.List(ctx, ownerID, q)
	if err != nil {
		return nil, toStatus("list", err)
	}
	return convert.ToListResponse(page), nil
}

// Resort renumbers the caller's queue.
func (s *Server) Resort(ctx context.Context, _ *queuev1.ResortRequest) (*queuev1.ResortResponse, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.items.Resort(ctx, ownerID)
	if err != nil {
		return nil, toStatus("resort", err)
	}
	return &queuev1.ResortResponse{Moved: int32(n)}, nil
}
