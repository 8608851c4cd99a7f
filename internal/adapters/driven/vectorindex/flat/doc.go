// Package flat provides an exact inner-product vector index persisted as
// two artifacts: a binary vector file and a JSON Lines metadata sidecar.
//
// Line i of the sidecar describes row i of the vector file. Writers replace
// both files through temp-file and rename, metadata first, so a reader may
// observe more metadata than vectors but never fewer. Loading tolerates the
// former by using the aligned prefix and reports the latter as
// domain.ErrIndexCorrupt.
package flat
