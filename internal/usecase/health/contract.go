package health

import "context"

// StoragePinger checks availability of the quota storage.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// GeneratorChecker checks availability of the generation provider.
type GeneratorChecker interface {
	HealthCheck(ctx context.Context) error
}
