package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func startMongo(t *testing.T) (testcontainers.Container, string) {
	ctx := context.Background()
	natPort := nat.Port("27017/tcp")

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{string(natPort)},
			WaitingFor: wait.ForAll(
				wait.ForLog("Waiting for connections"),
				wait.ForListeningPort(natPort),
			),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, natPort)
	require.NoError(t, err)

	return container, fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}

func TestMongoRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	client, err := testcontainers.NewDockerClient()
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	defer client.Close()

	container, uri := startMongo(t)
	defer container.Terminate(context.Background())

	ctx := context.Background()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer mc.Disconnect(ctx)

	db := mc.Database("openbite_test")
	require.NoError(t, EnsureMongoIndexes(ctx, db))

	runContract(t, stores{
		posts:   NewMongoPostRepository(db),
		upvotes: NewMongoUpvoteRepository(db),
		users:   NewMongoUserRepository(db),
	})
}
