// Package syncer mirrors the receipts of the activity feed to disk.
//
// A Syncer walks the feed from the first page to the last. Every group with
// an id gets a directory under the output root, and every item that carries
// a receipt is resolved and stored as a pair of files:
//
//	<output>/<group id>/rcpt.pdf     receipt binary
//	<output>/<group id>/rcpt.json    receipt details source text
//
// Failure policy:
//   - a feed page that cannot be fetched ends the run with an error
//   - a group whose directory cannot be created is skipped
//   - an item whose receipt cannot be resolved, downloaded or stored is
//     reported and the walk moves on
//
// An item whose binary and sidecar both exist is skipped, so repeated runs
// only fetch what is missing.
//
// Usage:
//
//	store, err := storage.NewManager("receipts")
//	if err != nil {
//	    return err
//	}
//	s := syncer.New(client, store, syncer.WithMetrics(recorder))
//	stats, err := s.Run(ctx)
package syncer
