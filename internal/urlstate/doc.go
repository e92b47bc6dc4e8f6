// Package urlstate mirrors collection queries into the console's address bar.
//
// A Location is the address bar itself; MemoryLocation keeps it in process
// with a history stack. A Bridge reads and writes single parameters, and
// Bind gives each synchroniser a Binding that seeds its initial query and
// publishes every applied query back.
//
// Writes only touch the segments they own. Every other segment of the raw
// query string, including ones that do not decode or have no value, is kept
// byte for byte and in place.
//
//	loc := urlstate.NewMemoryLocation("admin/buyers", "ref=mail&q=acme")
//	bd := urlstate.NewBridge(loc, logger).Bind("")
//	seed := bd.Seed()                  // ref=mail&q=acme
//	bd.Publish(seed.With("page", "2")) // ref=mail&q=acme&page=2
package urlstate
