package auth

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey string

const ownerIDKey ctxKey = "pq.ownerID"

// WithOwnerID stores the authenticated owner in ctx.
func WithOwnerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerIDKey, id)
}

// OwnerIDFromCtx fetches the owner stored by WithOwnerID.
func OwnerIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(ownerIDKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
