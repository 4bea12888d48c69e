// Package storage owns the on-disk layout of downloaded receipts.
//
// Every feed group gets a directory named after its id under the output
// root. Each receipt is stored under its backend filename, with a .json
// sidecar holding the raw details payload it was resolved from:
//
//	receipts/
//	  <group id>/
//	    rcpt.pdf
//	    rcpt.json
//
// A receipt counts as downloaded when both files exist. Staging
// directories, whose contents the backend recomputes on every run, are
// deleted before a run by PurgeStaging.
//
// Ids and filenames come from the backend and are passed through
// SanitizeName before they touch the filesystem.
package storage
