// Package http exposes the command encoders as JSON endpoints over plain
// net/http, mirroring the teacher's pkg/gateway/http package: a thin
// translation layer in front of the real dispatcher, not a second protocol
// implementation. It exists to give the dispatcher a second, concurrent
// caller alongside the CLI and the tests.
package http

import "net/http"

// GatewayError pairs an HTTP status with the "ERROR:<code>" response body
// the teacher's gateway uses, so a client can distinguish a bad request
// from an element-reported command error without parsing prose.
type GatewayError struct {
	Code   int
	Status int
	Msg    string
}

func (e *GatewayError) Error() string { return e.Msg }

var (
	ErrBadOID       = &GatewayError{Code: 100, Status: http.StatusBadRequest, Msg: "malformed or missing object id"}
	ErrBadHex       = &GatewayError{Code: 101, Status: http.StatusBadRequest, Msg: "malformed hex payload"}
	ErrBadAlgorithm = &GatewayError{Code: 102, Status: http.StatusBadRequest, Msg: "unknown algorithm name"}
	ErrBadCount     = &GatewayError{Code: 103, Status: http.StatusBadRequest, Msg: "count out of range"}
	ErrCommand      = &GatewayError{Code: 200, Status: http.StatusUnprocessableEntity, Msg: "element reported a command error"}
	ErrTransport    = &GatewayError{Code: 300, Status: http.StatusServiceUnavailable, Msg: "transport fault talking to the element"}
)

// commandError wraps an element-reported *command.CommandError with its
// outcome code added to the gateway code (200 + outcome), since the gateway's JSON envelope
// carries a single numeric code rather than Go's richer error chain.
func commandError(outcomeCode int) *GatewayError {
	return &GatewayError{Code: 200 + outcomeCode, Status: http.StatusUnprocessableEntity, Msg: "element reported a command error"}
}
