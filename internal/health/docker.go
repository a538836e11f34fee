package health

import (
	"context"
	"log"
	"time"

	"github.com/docker/docker/client"
)

// DockerProbe pings the local Docker daemon. On hosts whose entire workload
// runs in containers a wedged dockerd means the host is not doing its job,
// even when memory and disk look fine.
type DockerProbe struct {
	Timeout time.Duration
	cli     *client.Client
}

func NewDockerProbe(timeout time.Duration) (*DockerProbe, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerProbe{Timeout: timeout, cli: cli}, nil
}

func (p *DockerProbe) Name() string { return "docker" }

func (p *DockerProbe) Check() bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	if _, err := p.cli.Ping(ctx); err != nil {
		log.Printf("[Health] docker ping failed: %v", err)
		return false
	}
	return true
}
