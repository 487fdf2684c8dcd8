// Package ports picks the local port the gateway listens on
package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var ErrExhausted = errors.New("no available ports")

// Allocate returns the first port in [start, end] that refuses a TCP
// connection on localhost. Availability is inferred from the refused connect,
// not from a bind, so the caller should listen on it right away.
func Allocate(start, end int, timeout time.Duration) (int, error) {
	for port := start; port <= end; port++ {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), timeout)
		if err != nil {
			return port, nil
		}
		_ = conn.Close()
	}
	return 0, fmt.Errorf("%w in the range %d-%d", ErrExhausted, start, end)
}
