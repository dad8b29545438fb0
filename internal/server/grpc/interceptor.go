package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/server/auth"
	"github.com/dmitrijs2005/clientkeeper/internal/server/metrics"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// healthServicePrefix covers Check and Watch, which health checkers call unauthenticated.
const healthServicePrefix = "/grpc.health.v1.Health/"

// ClaimsFromContext returns the claims stored by the interceptors.
func ClaimsFromContext(ctx context.Context) (*auth.ValidatedClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.ValidatedClaims)
	return c, ok
}

func (s *GRPCServer) authorize(ctx context.Context, method string) (context.Context, error) {
	if strings.HasPrefix(method, healthServicePrefix) {
		return ctx, nil
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}

	claims, err := s.tokens.Validate(header)
	if err != nil {
		class, label := auth.Classify(err)
		metrics.TokenRejected(label)
		return nil, status.Error(codes.Unauthenticated, class.Error())
	}
	return context.WithValue(ctx, claimsKey, claims), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type authorizedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *authorizedStream) Context() context.Context { return w.ctx }

func (s *GRPCServer) streamAccessTokenInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authorizedStream{ServerStream: ss, ctx: ctx})
}
