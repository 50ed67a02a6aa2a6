package interceptors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	requestIDKey = "x-request-id"
)

// quietMethods are probed constantly and only logged at debug level.
var quietMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
}

func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()

		requestID := getOrGenerateRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, requestID))

		resp, err = handler(ctx, req)
		logCall(logger, ctx, info.FullMethod, requestID, time.Since(start), err)
		return resp, err
	}
}

func StreamLoggingInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		ctx := ss.Context()

		requestID := getOrGenerateRequestID(ctx)
		_ = ss.SetHeader(metadata.Pairs(requestIDKey, requestID))

		err := handler(srv, ss)
		logCall(logger, ctx, info.FullMethod, requestID, time.Since(start), err)
		return err
	}
}

func logCall(logger *zap.Logger, ctx context.Context, method, requestID string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("request_id", requestID),
		zap.Duration("duration", duration),
	}
	if p, ok := peer.FromContext(ctx); ok {
		fields = append(fields, zap.String("peer", p.Addr.String()))
	}

	if err != nil {
		st, _ := status.FromError(err)
		logger.Error("gRPC request failed",
			append(fields, zap.String("code", st.Code().String()), zap.Error(err))...,
		)
		return
	}

	level := zapcore.InfoLevel
	if quietMethods[method] {
		level = zapcore.DebugLevel
	}
	logger.Log(level, "gRPC request completed", fields...)
}

func getOrGenerateRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.New().String()
	}

	requestIDs := md.Get(requestIDKey)
	if len(requestIDs) > 0 && requestIDs[0] != "" {
		return requestIDs[0]
	}

	return uuid.New().String()
}
