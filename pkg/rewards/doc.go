// Package rewards is the client side of the Everyday Rewards backend.
//
// A Client sends authenticated JSON requests, one attempt each. Every JSON
// response is wrapped in an Envelope whose data is decoded late, once the
// caller knows the expected shape, and returned as a Sourced value that
// keeps the compact source text next to the typed result. That text is
// what the syncer persists as the receipt sidecar.
//
// An ActivityStream walks the activity feed page by page:
//
//	stream := rewards.NewActivityStream(client)
//	for page, err := range stream.Pages(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    for _, group := range page.Value.Groups {
//	        ...
//	    }
//	}
package rewards
