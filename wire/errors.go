package wire

import "errors"

// Error kinds returned by the codec and framing layers.
//
// Propagation policy: Truncated and CrcFailed are resync conditions the
// reassembler recovers from on its own; Malformed and UnknownRouting are
// discarded by the caller (a handler or shape decoder) after being
// logged; ResourceExhausted surfaces to whichever write call triggered
// it. None of these ever unwind a goroutine.
var (
	ErrTruncated         = errors.New("wire: truncated")
	ErrCrcFailed         = errors.New("wire: crc check failed")
	ErrMalformed         = errors.New("wire: malformed packet")
	ErrUnknownRouting    = errors.New("wire: unknown routing id")
	ErrResourceExhausted = errors.New("wire: resource exhausted")
	ErrBufferFull        = errors.New("wire: buffer full")
)
