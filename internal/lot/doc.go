// Package lot implements the scan-lot core of lotscan: validating scanned
// identifier tokens, deduplicating them into bounded lots, and rendering or
// parsing the textual lot listing shown to the operator.
//
// A Session is a plain value. Every transition (Submit, ResetLot) returns a
// new Session together with the Effects a host should apply to its screen
// (clear the input, update the counter, disable input at capacity, show a
// notice). The package never touches a UI, a file, or the network.
//
// Hosts that receive events concurrently wrap the Session in a Station,
// which serializes every transition through one owning goroutine.
package lot
