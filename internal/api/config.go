package api

import (
	"net"
	"strconv"
)

// Config holds query server configuration.
type Config struct {
	Host           string   // Listen host, empty = all interfaces
	Port           int      // Listen port
	AllowedOrigins []string // CORS and websocket origins (empty = allow all)
	MaxMessageSize int64    // Websocket read limit in bytes (0 = DefaultMaxMessageSize)
}

// DefaultMaxMessageSize bounds a single websocket query message.
const DefaultMaxMessageSize = 4096

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) maxMessageSize() int64 {
	if c.MaxMessageSize > 0 {
		return c.MaxMessageSize
	}
	return DefaultMaxMessageSize
}
