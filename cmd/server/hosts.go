package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/virtualpytest/core/internal/hostproxy"
)

// hostRegistry resolves a host name to a gRPC client, dialing lazily
// and caching the connection. Host addressing is a deployment concern
// this core does not own (see HostAddrs in config); the registry only
// holds what it was configured with.
type hostRegistry struct {
	addrs     map[string]string
	httpAddrs map[string]string

	mu      sync.Mutex
	clients map[string]*hostproxy.HostExecutorClient
}

func newHostRegistry(addrs, httpAddrs map[string]string) *hostRegistry {
	return &hostRegistry{addrs: addrs, httpAddrs: httpAddrs, clients: make(map[string]*hostproxy.HostExecutorClient)}
}

func (r *hostRegistry) client(ctx context.Context, hostName string) (*hostproxy.HostExecutorClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[hostName]; ok {
		return c, nil
	}
	addr, ok := r.addrs[hostName]
	if !ok {
		return nil, fmt.Errorf("host %q is not registered", hostName)
	}
	c, err := hostproxy.Dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("dial host %q at %s: %w", hostName, addr, err)
	}
	r.clients[hostName] = c
	return c, nil
}

// httpAddr returns the host's plain-HTTP address, used for the script
// execution surface which is not part of the gRPC HostExecutor service.
func (r *hostRegistry) httpAddr(hostName string) (string, bool) {
	addr, ok := r.httpAddrs[hostName]
	return addr, ok
}
