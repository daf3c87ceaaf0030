// Package api hosts the HTTP server, middleware, and REST handlers. Routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/reviews runs one acquisition and returns the outcome.
//   - POST /v1/jobs queues an acquisition; GET /v1/jobs/{job_id} reports it.
package api
