package health

import "context"

// CredentialsChecker verifies that signing credentials can be resolved.
type CredentialsChecker interface {
	CheckCredentials(ctx context.Context) error
}

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
