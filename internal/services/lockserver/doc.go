// Package lockserver is an HTTP client for the shared lock server that stores
// one start timestamp per work item.
//
// The server exposes GET /checklocktime/{key}, which answers 200 with a
// "2006-01-02 15:04:05" UTC timestamp or 404 when the key was never locked,
// and POST /createlocktime/{key}, which stores the request body as the new
// timestamp. With ?if_absent=1 the server answers 201 when it created the key
// and 409 when the key already existed. Client implements lease.Service.
package lockserver
