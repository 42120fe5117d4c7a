package grpcserver

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/playqueue/internal/auth"
	"github.com/and161185/playqueue/internal/limiter"
)

// LoggingUnary returns a unary server interceptor for structured logging.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		// metadata only, never payloads
		lvl := zap.InfoLevel
		switch code {
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			lvl = zap.ErrorLevel
		}
		log.Log(lvl, "grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", remote),
		)
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// public methods skip authentication.
var publicPrefixes = []string{"/grpc.health.v1.", "/grpc.reflection."}

// AuthUnary verifies the bearer token and stores the owner in the context.
// Peers that keep failing are throttled by lim; a nil lim disables that.
func AuthUnary(v *auth.Verifier, lim limiter.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		for _, p := range publicPrefixes {
			if strings.HasPrefix(info.FullMethod, p) {
				return next(ctx, req)
			}
		}
		tok, err := bearerTokenFromMD(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "no auth")
		}
		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}
		var id uuid.UUID
		err = limiter.Check(ctx, lim, remote, func() (err error) {
			id, err = v.Verify(tok)
			return err
		})
		var blocked *limiter.BlockedError
		switch {
		case errors.As(err, &blocked):
			return nil, status.Error(codes.ResourceExhausted, blocked.Error())
		case err != nil:
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return next(auth.WithOwnerID(ctx, id), req)
	}
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		if t, ok := auth.BearerToken(v); ok {
			return t, nil
		}
	}
	return "", errors.New("no bearer token")
}
