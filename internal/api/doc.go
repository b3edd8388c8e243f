// Package api is the client for the alerts REST service.
//
// Endpoints:
//   - POST   /alerts         create an alert
//   - PUT    /alerts/{uuid}  replace an alert's definition
//   - DELETE /alerts/{uuid}  cancel an alert
//   - GET    /alerts         list the user's alerts
//   - GET    /markets        paginated market catalogue (cursor)
//
// Every request carries a bearer token from an auth.TokenProvider. GET
// requests are retried with jittered exponential backoff; mutations are not.
package api
