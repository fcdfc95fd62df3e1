package main

import (
	"docbatch/internal/blobstore"
	"docbatch/internal/config"
	"docbatch/internal/lease"
	"docbatch/internal/services/inference"
	"docbatch/internal/services/lockserver"
)

func newBlobStore() *blobstore.Router {
	return blobstore.NewRouter()
}

// newLeaseService returns the configured lease backend and, for remote
// backends, the client used for preflight pings.
func newLeaseService(cfg *config.Config) (lease.Service, *lockserver.Client) {
	if cfg.Lease.Endpoint == config.MemoryLeaseEndpoint || cfg.Lease.Endpoint == "" {
		return lease.NewMemoryService(), nil
	}
	client := lockserver.NewClient(lockserver.Config{
		Endpoint:       cfg.Lease.Endpoint,
		TimeoutSeconds: cfg.Lease.RequestTimeoutSeconds,
	})
	return client, client
}

func newInferenceClient(cfg *config.Config) *inference.Client {
	return inference.NewClient(inference.Config{
		Endpoint:       cfg.Inference.Endpoint,
		TimeoutSeconds: cfg.Inference.TimeoutSeconds,
	})
}
