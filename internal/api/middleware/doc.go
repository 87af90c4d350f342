// Package middleware provides the HTTP middleware in front of the host's
// REST and bridge endpoints.
//
// CORS:
//   - AllowOrigins: the origins of the frames in the manifest, nothing else
//   - AllowMethods: GET, POST, OPTIONS
//   - MaxAge: preflight cache duration
//
// Rate Limiting:
//   - Per-IP token bucket (golang.org/x/time/rate)
//   - Idle clients are evicted after IdleTTL
//   - RequestsPerSecond <= 0 disables the limit
package middleware
