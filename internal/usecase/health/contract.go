package health

import "context"

// Pinger checks the availability of one backing system.
type Pinger interface {
	Ping(ctx context.Context) error
}
