package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

const requestIDHeader = "x-request-id"

// UnaryInterceptor tags each call with a request id (taken from the
// x-request-id header when present), logs it, and turns handler panics into
// codes.Internal.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(requestIDHeader); len(v) > 0 {
				reqID = v[0]
			}
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, reqID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, reqID))

		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic in handler", "method", info.FullMethod, "request_id", reqID,
					"panic", fmt.Sprint(p), "stack", string(debug.Stack()))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			logger.Info("grpc request",
				"method", info.FullMethod,
				"code", status.Code(err).String(),
				"request_id", reqID,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}()
		return handler(ctx, req)
	}
}
