// Package api provides the HTTP API layer for the CropGuard service.
// It uses the Huma framework to provide automatic OpenAPI documentation,
// request/response validation, and a clean handler interface.
//
// # Architecture
//
// The API package is structured as follows:
//
// - server.go: Huma API configuration and setup
// - handlers/: HTTP request handlers
// - dto/: Data Transfer Objects for requests and responses
// - middleware/: HTTP middleware for cross-cutting concerns
//
// # Key Features
//
// 1. Automatic OpenAPI Generation
//
// The API automatically generates OpenAPI 3.1 documentation:
// - JSON spec available at /openapi.json
// - Interactive docs UI at /docs
//
// 2. Request/Response Validation
//
// Huma provides automatic validation based on struct tags:
//
//	type HistoryInput struct {
//	    DeviceID string `path:"deviceId"`
//	    Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"20"`
//	    Offset   int    `query:"offset" minimum:"0"`
//	}
//
// Leaf photos arrive as multipart forms on POST /scans and read-aloud
// events leave as server-sent events on /devices/{deviceId}/readaloud/events.
//
// 3. Middleware Support
//
// The API includes middleware for:
// - CORS, applied first so preflights are never limited
// - Request logging with unique request IDs
// - Rate limiting per client IP, behind the rate_limit_enabled flag
//
// # Usage Example
//
//	humaAPI, router, stop := api.NewAPIWithMiddleware(api.APIConfig{
//	    Logger:     logger,
//	    Flags:      flags,
//	    RateLimit:  100,
//	    RateWindow: time.Minute,
//	})
//	defer stop()
//
//	handlers.NewCatalogHandler(catalogService).RegisterRoutes(humaAPI)
//
//	http.ListenAndServe(":8000", router)
//
// # Error Handling
//
// The API uses a consistent error format based on RFC 7807:
//
//	{
//	    "status": 404,
//	    "title": "Not Found",
//	    "detail": "disease not found: banana-sigatoka"
//	}
//
// Domain errors are mapped to HTTP status codes in handlers/errors.go.
package api
