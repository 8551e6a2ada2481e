// ABOUTME: Dependencies container provides dependency injection for core services
// ABOUTME: Defines the contract for dependencies required by the core business logic

package interfaces

import (
	"context"

	"cropguard-api/pkg/featureflags"
)

// Dependencies holds all external dependencies required by the core business logic
type Dependencies struct {
	// Cache provides caching functionality
	Cache Cache

	// HTTPClient provides HTTP request functionality
	HTTPClient HTTPClient

	// Logger provides structured logging
	Logger Logger

	// Flags toggles optional behaviour; nil disables every flag
	Flags featureflags.Manager
}

// Enabled reports whether a feature flag is on; a nil Flags manager disables everything
func (d Dependencies) Enabled(ctx context.Context, flag featureflags.FeatureFlag) bool {
	return d.Flags != nil && d.Flags.IsEnabled(ctx, flag)
}
