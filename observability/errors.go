package observability

import "errors"

// ErrNilConfig is returned when NewProvider is called with a nil config.
var ErrNilConfig = errors.New("observability: config is nil")

// ErrInvalidProtocol is returned when the trace protocol is not "http" or "grpc".
var ErrInvalidProtocol = errors.New("observability: protocol must be either 'http' or 'grpc'")

// ErrInvalidEndpointFormat is returned when the endpoint format doesn't match the protocol.
// gRPC endpoints must NOT include an http:// or https:// scheme (use "host:port" format).
var ErrInvalidEndpointFormat = errors.New("observability: invalid endpoint format for protocol")
