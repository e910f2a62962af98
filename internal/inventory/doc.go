// Package inventory is a client for the inventory API that issues carton
// numbers and label data.
//
// Every response is wrapped in an envelope:
//
//	{"success": true, "message": "...", "data": ...}
//
// A response with success=false (or a carton/mono response without
// data.isOK) is returned as an *APIError carrying the server's message, so
// callers can show it to the operator unchanged.
//
// Authenticated calls send the stored session as x-token, x-user-id,
// x-mac-address and x-ip-address headers.
package inventory
