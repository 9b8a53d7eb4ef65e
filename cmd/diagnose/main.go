package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"zlibsearch/internal/api"
	"zlibsearch/internal/config"
	"zlibsearch/internal/healthcheck"
)

func main() {
	cfg := config.Get()
	addr := flag.String("addr", cfg.Server.BaseURL(), "base URL of the search API")
	grpcAddr := flag.String("grpc", cfg.GRPCHealth.Address(), "gRPC health address (empty skips the probe)")
	query := flag.String("query", "test", "query used for the search probe")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !diagnose(ctx, os.Stdout, *addr, *grpcAddr, *query) {
		os.Exit(1)
	}
}

// diagnose runs every probe and reports whether all of them passed.
func diagnose(ctx context.Context, w io.Writer, addr, grpcAddr, query string) bool {
	fmt.Fprintln(w, "🔍 === STARTING COMPONENT DIAGNOSTICS ===")
	client := api.NewClient(addr, 3*time.Second)
	ok := true

	fmt.Fprintf(w, "\n[1] Testing health check (%s/)...\n", addr)
	ok = checkHealth(ctx, w, client) && ok

	fmt.Fprintf(w, "\n[2] Testing search (%s/search)...\n", addr)
	ok = checkSearch(ctx, w, client, query) && ok

	if grpcAddr != "" {
		fmt.Fprintf(w, "\n[3] Testing gRPC health (%s)...\n", grpcAddr)
		ok = checkGRPC(ctx, w, grpcAddr) && ok
	}

	fmt.Fprintln(w, "\n🏁 === DIAGNOSTICS COMPLETE ===")
	return ok
}

func checkHealth(ctx context.Context, w io.Writer, c *api.Client) bool {
	if err := c.Health(ctx); err != nil {
		fmt.Fprintf(w, "❌ Health check failed: %v\n", err)
		return false
	}
	fmt.Fprintln(w, "✅ PASS")
	return true
}

func checkSearch(ctx context.Context, w io.Writer, c *api.Client, query string) bool {
	limit := uint(1)
	res, err := c.Search(ctx, query, &limit)
	if err != nil {
		fmt.Fprintf(w, "❌ Search failed: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "✅ PASS. Books: %d\n", len(res.Books))
	return true
}

func checkGRPC(ctx context.Context, w io.Writer, addr string) bool {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(w, "❌ Failed to connect to gRPC health: %v\n", err)
		return false
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: healthcheck.ServiceName})
	if err != nil {
		fmt.Fprintf(w, "❌ gRPC health check failed: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "   %s\n", protojson.Format(resp))
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		fmt.Fprintln(w, "❌ Service is not serving")
		return false
	}
	fmt.Fprintln(w, "✅ PASS")
	return true
}
