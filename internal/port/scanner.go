package port

import (
	"net"
	"strconv"
)

// Scanner checks whether specific TCP ports are available on the host
// machine.
//
// It uses the operating system's network stack (net.Listen) to determine if
// a port is free, rather than parsing /proc/net/* or relying on external
// commands like `lsof` which may require elevated permissions. The listener
// binds all interfaces, which is the strictest check: a port bound on any
// interface is reported as taken.
type Scanner struct{}

// NewScanner creates a Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Probe binds the TCP port and releases it immediately. It returns nil when
// the port is free and the bind error otherwise (address in use, permission
// denied, ...).
func (s *Scanner) Probe(port int) error {
	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return listener.Close()
}
