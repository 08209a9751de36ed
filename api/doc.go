// Package api documents the ImageFlow HTTP API.
//
// # API Overview
//
// ImageFlow exposes a small RESTful API:
//   - POST   /v1/images/generations  generate an image from {prompt, style, size}
//   - DELETE /v1/images/generations  cancel the session's active generation
//   - GET    /v1/images/history      per-session history and success rate
//   - GET    /v1/images/blobs/{id}   download a binary result
//   - GET    /v1/styles              style table
//   - GET    /v1/providers           providers in trial order
//   - GET    /health, /healthz, /ready, /version
//
// Prometheus metrics are served on the separate metrics port at /metrics.
//
// # Sessions
//
// Requests carrying the same X-Session-ID header share one generator. A new
// generation in a session supersedes the one still in flight, which then
// fails with CANCELLED (HTTP 409).
//
// # Authentication
//
// When API keys or a JWT secret are configured, requests must carry either
//
//	X-API-Key: your-api-key
//
// or an HS256 bearer token:
//
//	Authorization: Bearer <jwt>
//
// # Base URL
//
//	http://localhost:8080
package api
