// Package testenv starts shared database containers for integration tests.
// Each container is started once per test process; tests are skipped in
// -short mode or when no container runtime is available.
package testenv

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func skipUnlessDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// shared holds one lazily started container.
type shared struct {
	once sync.Once
	addr string
	err  error
}

func (s *shared) get(t *testing.T, name string, start func(ctx context.Context) (string, error)) string {
	t.Helper()
	skipUnlessDocker(t)
	s.once.Do(func() {
		s.addr, s.err = start(context.Background())
	})
	if s.err != nil {
		t.Fatalf("%s container failed: %v", name, s.err)
	}
	return s.addr
}

var (
	surreal  shared
	postgres shared
	redis    shared
)

// SurrealDBAddress returns the WebSocket RPC address of a SurrealDB started
// with root/root credentials.
func SurrealDBAddress(t *testing.T) string {
	return surreal.get(t, "SurrealDB", func(ctx context.Context) (string, error) {
		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}
		hostPort, err := startGeneric(ctx, req, "8000/tcp")
		if err != nil {
			return "", err
		}
		return "ws://" + hostPort + "/rpc", nil
	})
}

// PostgresDSN returns the connection string of an empty PostgreSQL database.
func PostgresDSN(t *testing.T) string {
	return postgres.get(t, "PostgreSQL", func(ctx context.Context) (string, error) {
		c, err := tcpostgres.Run(ctx,
			"postgres:15-alpine",
			tcpostgres.WithDatabase("testdb"),
			tcpostgres.WithUsername("testuser"),
			tcpostgres.WithPassword("testpass"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		if err != nil {
			return "", fmt.Errorf("start postgres container: %w", err)
		}
		dsn, err := c.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			c.Terminate(ctx)
			return "", fmt.Errorf("get postgres connection string: %w", err)
		}
		return dsn, nil
	})
}

// RedisAddress returns the host:port of a Redis server.
func RedisAddress(t *testing.T) string {
	return redis.get(t, "Redis", func(ctx context.Context) (string, error) {
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		}
		return startGeneric(ctx, req, "6379/tcp")
	})
}

func startGeneric(ctx context.Context, req testcontainers.ContainerRequest, port string) (string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start %s container: %w", req.Image, err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return "", fmt.Errorf("get %s host: %w", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		container.Terminate(ctx)
		return "", fmt.Errorf("get %s port: %w", req.Image, err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}
