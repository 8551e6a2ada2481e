// Package core contains the business logic for the CropGuard API.
// It is designed to be framework-agnostic and can be used independently
// of any web framework or infrastructure concerns.
//
// The core package is organized into several sub-packages:
//
// - domain: Pure domain models (ScanRecord, Disease, Profile, Alert, Language)
// - catalog: Embedded disease encyclopedia
// - inference: Client for the external plant disease model server
// - scan: Leaf scan analysis, history and stats
// - profile: Per-device settings
// - alerts: Community disease alerts and advisory feeds
// - i18n: UI text in the supported languages
// - readaloud: Sequential, interruptible read-aloud controller
// - errors: Custom error types for better error handling
// - interfaces: Contracts for external dependencies (cache, HTTP, logger, storage)
//
// # Design Principles
//
// - No web framework dependencies
// - All external dependencies are injected via interfaces
// - Business logic is testable in isolation
//
// # Usage Example
//
//	deps := interfaces.Dependencies{
//	    Cache:      myCache,
//	    HTTPClient: myHTTPClient,
//	    Logger:     myLogger,
//	    Flags:      flags,
//	}
//
//	scans := scan.NewService(deps, store, inferenceClient, catalogService, nil)
//	result, err := scans.Analyze(ctx, deviceID, photo)
package core
