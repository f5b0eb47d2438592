package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Serializer algorithm ids
// --------------------------------------------------------------------------

// SerializerAlgorithm is the one byte serializer id carried in every frame header
type SerializerAlgorithm uint8

const (
	AlgObject SerializerAlgorithm = 0 // structured-object (gob)
	AlgJSON   SerializerAlgorithm = 1 // text (json)
	AlgBinary SerializerAlgorithm = 2 // compact-binary
)

// String returns the canonical name of the algorithm
func (a SerializerAlgorithm) String() string {
	switch a {
	case AlgObject:
		return "object"
	case AlgJSON:
		return "json"
	case AlgBinary:
		return "binary"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseSerializerAlgorithm accepts the canonical names, the names used by the
// Java implementation (Java, Json, Hessian) and the numeric ids.
func ParseSerializerAlgorithm(name string) (SerializerAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "object", "gob", "java", "0":
		return AlgObject, nil
	case "json", "text", "1":
		return AlgJSON, nil
	case "binary", "compact", "hessian", "2":
		return AlgBinary, nil
	default:
		return 0, errors.Wrapf(ErrSerialization, "invalid serializer %q (expected one of object, json, binary)", name)
	}
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

const (
	// DefaultMaxFrameSize bounds a single frame (header plus payload)
	DefaultMaxFrameSize = 1024
	// DefaultWorkersPerConn bounds concurrent method invocations per connection
	DefaultWorkersPerConn = 16
)

// ServerConfig holds all configuration parameters of the RPC server.
type ServerConfig struct {
	// Endpoint is the listen address (host:port or a unix socket path)
	Endpoint string

	// TimeoutSecond is the read/write deadline of a connection (0 disables it)
	TimeoutSecond int64

	// MaxFrameSize is the maximum total frame size (header + payload)
	MaxFrameSize int

	// WorkersPerConn limits the concurrently executed requests per connection
	WorkersPerConn int

	// HandlerTimeoutSecond bounds a single method invocation (0 disables it)
	HandlerTimeoutSecond int64

	// RateLimit is the permitted number of requests per second (0 disables it)
	RateLimit float64
	// RateBurst is the token bucket size of the rate limiter
	RateBurst int

	// MetricsEndpoint is the address of the prometheus endpoint (empty disables it)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// FrameLimit returns MaxFrameSize or the default if unset
func (c *ServerConfig) FrameLimit() int {
	if c.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return c.MaxFrameSize
}

// Workers returns WorkersPerConn or the default if unset
func (c *ServerConfig) Workers() int {
	if c.WorkersPerConn <= 0 {
		return DefaultWorkersPerConn
	}
	return c.WorkersPerConn
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.FrameLimit()))
	addField("Workers Per Conn", strconv.Itoa(c.Workers()))
	addField("Handler Timeout", fmt.Sprintf("%d sec", c.HandlerTimeoutSecond))

	// Rate limiting
	if c.RateLimit > 0 {
		addSection("Rate Limit")
		addField("Requests Per Second", strconv.FormatFloat(c.RateLimit, 'f', -1, 64))
		addField("Burst", strconv.Itoa(c.RateBurst))
	}

	// Metrics
	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of the RPC client.
type ClientConfig struct {
	// Endpoint is the address of the server, all calls share one connection
	Endpoint string

	// TimeoutSecond bounds the wait for a response (0 waits forever)
	TimeoutSecond int

	// MaxFrameSize is the maximum total frame size (header + payload)
	MaxFrameSize int

	// Serializer is the algorithm used for outgoing requests
	Serializer SerializerAlgorithm

	// AutoReconnect re-dials a lost connection on the next call. If false a
	// lost connection fails every call until Connect is called again.
	AutoReconnect bool
}

// FrameLimit returns MaxFrameSize or the default if unset
func (c *ClientConfig) FrameLimit() int {
	if c.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return c.MaxFrameSize
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.FrameLimit()))
	addField("Serializer", c.Serializer.String())
	addField("Auto Reconnect", strconv.FormatBool(c.AutoReconnect))

	return sb.String()
}
