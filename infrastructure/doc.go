// Package infrastructure provides concrete implementations of the interfaces
// defined in the core package. These implementations handle external concerns
// such as caching, storage, HTTP communication, speech and logging.
//
// The infrastructure package is organized by technical concern:
//
// - cache/memory: In-memory cache on patrickmn/go-cache
// - cache/redis: Redis-based cache implementation
// - storage/memory, storage/sqlite, storage/redis: Scan and profile records
// - http/standard: Standard library HTTP client with retry logic
// - logger/logrus: JSON logger with optional rotated file output
// - speech/google: Google Cloud text-to-speech synthesizer
// - speech/remote: Read-aloud engine that drives a device over server-sent events
//
// # Cache Implementations
//
//	cache := memory.NewMemoryCache(time.Hour, 10*time.Minute)
//	err := cache.Set(ctx, "key", []byte("value"), time.Hour)
//	value, err := cache.Get(ctx, "key")
//
//	cache, err := redis.NewRedisCache(config.RedisConfig{Address: "localhost:6379"})
//
// # Storage
//
// Every store passes the shared suite in storage/storagetest:
//
//	store, err := sqlite.NewStore("cropguard.db")
//	defer store.Close()
//
// # HTTP Client
//
// The HTTP client retries GETs on transient failures and never retries POSTs:
//
//	client := standard.NewStandardHTTPClient(30*time.Second, standard.WithRateLimit(20, 10))
//	resp, err := client.Get(ctx, "https://example.com/advisories.rss")
//	if err != nil {
//	    // Handle error
//	}
//	defer resp.Body().Close()
package infrastructure
