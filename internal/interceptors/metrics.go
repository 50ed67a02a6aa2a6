package interceptors

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	grpcRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "Histogram of gRPC request durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	grpcActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grpc_active_requests",
			Help: "Number of active gRPC requests",
		},
		[]string{"method"},
	)
)

func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		done := observe(info.FullMethod)
		resp, err = handler(ctx, req)
		done(err)
		return resp, err
	}
}

func StreamMetricsInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		done := observe(info.FullMethod)
		err := handler(srv, ss)
		done(err)
		return err
	}
}

// observe marks a call as active and returns the func that records its
// outcome.
func observe(method string) func(error) {
	start := time.Now()
	grpcActiveRequests.WithLabelValues(method).Inc()

	return func(err error) {
		grpcActiveRequests.WithLabelValues(method).Dec()
		grpcRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		grpcRequestsTotal.WithLabelValues(method, status.Code(err).String()).Inc()
	}
}
