package wire

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// CollationFlags are the flag bits in a CollatedPacket's payload.
type CollationFlags uint16

const (
	// CFCompressed indicates the inner packets are GZip-compressed.
	CFCompressed CollationFlags = 1 << 0
)

// DefaultCollationBudget is the default payload size (in bytes) that
// triggers an automatic flush from Encoder.Add (spec.md §4.3).
const DefaultCollationBudget = 64 * 1024

// Encoder accumulates whole packets and, on Finish, emits a single
// CollatedPacket packet whose payload is either their raw concatenation
// or its GZip compression, prefixed by the uncompressed length so a
// Decoder can preallocate.
type Encoder struct {
	compress bool
	budget   int
	staging  []byte
	flushed  [][]byte
}

// NewEncoder creates an Encoder. If compress is true, Finish GZips the
// concatenated packets.
func NewEncoder(compress bool) *Encoder {
	return &Encoder{compress: compress, budget: DefaultCollationBudget}
}

// SetBudget overrides the auto-flush payload size threshold.
func (e *Encoder) SetBudget(n int) { e.budget = n }

// Add appends a complete packet's bytes to the pending batch. Once the
// staged bytes reach the configured budget, it auto-flushes the whole
// batch, this packet included, into a completed CollatedPacket and
// returns it as the first result; otherwise it returns nil.
func (e *Encoder) Add(packetBytes []byte) ([]byte, error) {
	e.staging = append(e.staging, packetBytes...)
	if len(e.staging) < e.budget {
		return nil, nil
	}
	return e.Finish()
}

// Pending returns the number of bytes staged but not yet finalised.
func (e *Encoder) Pending() int { return len(e.staging) }

// Finish wraps every packet staged since the last Finish into a single
// CollatedPacket packet and resets the staging buffer. It returns nil,
// nil if nothing was staged.
func (e *Encoder) Finish() ([]byte, error) {
	if len(e.staging) == 0 {
		return nil, nil
	}
	raw := e.staging
	e.staging = nil

	w := NewWriter(RCollatedPacket, MIDNull)
	if err := WriteElement(w, uint32(len(raw))); err != nil {
		return nil, err
	}
	var flags CollationFlags
	var body []byte
	if e.compress {
		flags |= CFCompressed
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(raw); err != nil {
			return nil, err
		}
		if err := gz.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()
	} else {
		body = raw
	}
	if err := WriteElement(w, uint16(flags)); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(body); err != nil {
		return nil, err
	}
	return w.Finish()
}

// Decoder exposes the inner packets of a single wire packet. If the
// packet's routing ID is RCollatedPacket, it is decompressed (if
// flagged) and iterated; an ordinary packet is yielded once, unchanged.
// A CollatedPacket nested inside another is rejected with ErrMalformed —
// nesting is disallowed (spec.md §4.3).
type Decoder struct {
	packets [][]byte
	idx     int
}

// NewDecoder prepares a Decoder over a single packet's bytes.
func NewDecoder(packetBytes []byte) (*Decoder, error) {
	r, err := NewReader(packetBytes)
	if err != nil {
		return nil, err
	}
	if r.RoutingID != RCollatedPacket {
		return &Decoder{packets: [][]byte{packetBytes}}, nil
	}

	uncompressedLen, err := ReadElement[uint32](r)
	if err != nil {
		return nil, err
	}
	flags, err := ReadElement[uint16](r)
	if err != nil {
		return nil, err
	}
	body, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return nil, err
	}

	var raw []byte
	if CollationFlags(flags)&CFCompressed != 0 {
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw, err = io.ReadAll(io.LimitReader(gz, int64(uncompressedLen)+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else {
		raw = body
	}
	if uint32(len(raw)) != uncompressedLen {
		return nil, fmt.Errorf("%w: collated payload length mismatch", ErrMalformed)
	}

	var inner [][]byte
	off := 0
	for off < len(raw) {
		pr, err := NewReader(raw[off:])
		if err != nil {
			return nil, err
		}
		if pr.RoutingID == RCollatedPacket {
			return nil, fmt.Errorf("%w: nested collation", ErrMalformed)
		}
		n := pr.Size()
		if off+n > len(raw) {
			return nil, fmt.Errorf("%w: truncated inner packet", ErrMalformed)
		}
		inner = append(inner, raw[off:off+n])
		off += n
	}
	return &Decoder{packets: inner}, nil
}

// Next returns the next inner packet, or (nil, false) when exhausted.
func (d *Decoder) Next() ([]byte, bool) {
	if d.idx >= len(d.packets) {
		return nil, false
	}
	p := d.packets[d.idx]
	d.idx++
	return p, true
}

// All returns every inner packet in order.
func (d *Decoder) All() [][]byte { return d.packets }
