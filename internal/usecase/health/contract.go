package health

import "context"

// Pinger checks storage availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker brings an embedding model up on first use and re-checks it afterwards.
type ModelChecker interface {
	Probe(ctx context.Context) error
}

// probe is one named dependency check.
type probe struct {
	name string
	run  func(ctx context.Context) error
}
