// Package client talks to the clientkeeper HTTP API.
//
// APIClient keeps the session token returned by Login and sends it as a
// bearer token on authenticated calls. Non-2xx responses become *APIError
// values which match the sentinels in internal/common via errors.Is;
// transport failures match ErrUnavailable.
package client
