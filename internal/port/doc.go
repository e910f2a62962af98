// Package port picks the TCP port the scan station listens on.
//
// The configured port is tried first; when it is taken, the next ports up
// to DefaultSpan above it are probed in order, so a second station on the
// same machine lands on a predictable neighbour:
//
//	8765 busy -> 8766 -> 8767 ...
package port
