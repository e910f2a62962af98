package port

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultSpan is how many ports above the preferred one are probed.
const DefaultSpan = 100

// MaxPort is the highest valid TCP port.
const MaxPort = 65535

// Scanner checks whether ports are free on one host address by binding
// them.
//
// Binding is the only check that matches what the HTTP server will do a
// moment later: a port that some other process holds, or that the OS keeps
// reserved, fails here exactly as it would fail in ListenAndServe. The
// check is still racy (another process may take the port between the probe
// and the real bind), and the server reports that as a normal start-up
// error.
//
// The host is kept on the scanner so that probing "127.0.0.1" and serving
// on "0.0.0.0" cannot disagree about which port is free.
type Scanner struct {
	host string
}

// NewScanner returns a scanner that binds on host. An empty host means all
// interfaces.
func NewScanner(host string) *Scanner {
	return &Scanner{host: host}
}

// IsAvailable reports whether port can be bound for TCP right now.
//
// Ports outside 1-65535 are never available. The probe listener is closed
// before returning.
func (s *Scanner) IsAvailable(port int) bool {
	if port < 1 || port > MaxPort {
		return false
	}
	l, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// FindAvailable returns the first free port in [start, end], probing in
// ascending order. end is clamped to MaxPort. It returns an error when
// every port in the range is taken.
func (s *Scanner) FindAvailable(start, end int) (int, error) {
	if end > MaxPort {
		end = MaxPort
	}
	for p := start; p <= end; p++ {
		if s.IsAvailable(p) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("no available port found in range %d-%d", start, end)
}

// Resolve returns preferred when it is free, otherwise the first free port
// in (preferred, preferred+span].
//
// A negative span is treated as zero, which makes Resolve fail unless the
// preferred port itself is free.
func (s *Scanner) Resolve(preferred, span int) (int, error) {
	if preferred < 1 || preferred > MaxPort {
		return 0, fmt.Errorf("invalid port %d (must be 1-%d)", preferred, MaxPort)
	}
	if span < 0 {
		span = 0
	}
	return s.FindAvailable(preferred, preferred+span)
}

// UsedPorts lists the ports in [start, end] that cannot be bound, in
// ascending order. After Resolve fell back to a higher port, the serve
// command uses it to report which ports were skipped.
func (s *Scanner) UsedPorts(start, end int) []int {
	var used []int
	for p := start; p <= end; p++ {
		if !s.IsAvailable(p) {
			used = append(used, p)
		}
	}
	return used
}
