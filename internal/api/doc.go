// Package api serves the scheduling engine over HTTP.
//
// Layout:
//   - handler.go    Handler and its dependencies
//   - routes.go     route registration
//   - middleware.go recovery, logging, per-user rate limiting
//   - response.go   JSON bodies and error mapping
//   - dto.go        request and response bodies
//   - scheduler_handler.go  POST /scheduler/run
//   - schedule_handler.go   GET /windows, GET /schedule/events
//
// Callers are authenticated upstream; the user id arrives in the X-User-ID
// header.
package api
