// Package api provides an HTTP client for the marketplace admin REST API.
//
// # Overview
//
// Every entity page is a resource path under the configured base URL
// ("admin/buyers", "admin/products", ...). The client lists a page of a
// resource with the collection's query and creates, updates or deletes
// single records for the form flows.
//
//   - client.go: Client, request construction, request sharing, rate limiting
//   - types.go: Record, ListResponse and StatusError
//
// # Client Usage
//
//	client, err := api.NewClient("http://127.0.0.1:8088/api", api.Options{Token: tok})
//	if err != nil {
//		return err
//	}
//	resp, err := client.List(ctx, "admin/buyers", query.MustParse("q=acme&page=2"))
//
// # Endpoints
//
//   - GET <resource>?<query>: {"items": [...], "total": n}; total is optional
//   - POST <resource>: create, returns the stored record
//   - PATCH <resource>/<id>: partial update, returns the stored record
//   - DELETE <resource>/<id>: 204 or 200
//
// The query string is sent in the collection's term order.
//
// # Request Handling
//
// All requests:
//   - Carry Accept, User-Agent: marketdesk/0.1 and a fresh X-Request-ID
//   - Carry Authorization: Bearer <token> when a token is configured
//   - Wait on the client-side rate limiter when RequestsPerSecond is set
//   - Time out after 10 seconds
//
// Identical concurrent List calls share one round trip. A create, update or
// delete of a resource starts a new sharing generation for it, so a reload
// issued after a save never joins a GET that was sent before the save. The
// shared GET runs detached from any single caller; a caller whose ctx ends
// stops waiting without failing the others.
//
// # Error Handling
//
//   - 4xx/5xx responses: *StatusError with method, path, code and the
//     server's message; a 404 unwraps to ErrNotFound
//   - Network failures: "execute request: ..."
//   - Bad JSON: "decode response: ..."
//
// The Client is safe for concurrent use.
package api
