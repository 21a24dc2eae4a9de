package grpc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/plantnet/plantnet-server/pkg/grpc"
)

func dial(t *testing.T, addr string) grpc_health_v1.HealthClient {
	t.Helper()
	conn, err := grpclib.NewClient(addr, grpclib.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func TestHealthFollowsStorePing(t *testing.T) {
	srv := grpc.New()
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	defer srv.Stop()

	var healthy = make(chan bool, 1)
	healthy <- true
	ping := func(context.Context) error {
		ok := <-healthy
		healthy <- ok
		if !ok {
			return errors.New("store down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.WatchHealth(ctx, ping, 10*time.Millisecond)

	client := dial(t, srv.Addr())
	status := func() grpc_health_v1.HealthCheckResponse_ServingStatus {
		cctx, ccancel := context.WithTimeout(context.Background(), time.Second)
		defer ccancel()
		resp, err := client.Check(cctx, &grpc_health_v1.HealthCheckRequest{})
		if err != nil {
			return grpc_health_v1.HealthCheckResponse_UNKNOWN
		}
		return resp.Status
	}

	assert.Eventually(t, func() bool { return status() == grpc_health_v1.HealthCheckResponse_SERVING },
		2*time.Second, 10*time.Millisecond)

	<-healthy
	healthy <- false

	assert.Eventually(t, func() bool { return status() == grpc_health_v1.HealthCheckResponse_NOT_SERVING },
		2*time.Second, 10*time.Millisecond)
}
