package interceptors

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer recoverTo(logger, info.FullMethod, &err)
		return handler(ctx, req)
	}
}

func StreamRecoveryInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer recoverTo(logger, info.FullMethod, &err)
		return handler(srv, ss)
	}
}

func recoverTo(logger *zap.Logger, method string, err *error) {
	if r := recover(); r != nil {
		logger.Error("panic recovered",
			zap.String("method", method),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())),
		)
		*err = status.Error(codes.Internal, "internal server error")
	}
}
