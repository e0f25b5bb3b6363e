package wire

import (
	"errors"

	"github.com/tesceneio/tes/internal/logging"
)

// ErrNeedMore is returned by Reassembler.Next when the buffered bytes do
// not yet contain a complete, validated packet. It is not a failure: the
// caller should push more bytes and try again.
var ErrNeedMore = errors.New("wire: need more data")

// Reassembler turns an arbitrary byte stream into a sequence of
// validated packets (spec.md §4.2). Callers push bytes as they arrive
// from a socket or file; Next extracts one complete packet at a time,
// scanning for Marker, waiting for the declared payload length (and CRC,
// unless FNoCrc is set), and dropping any bytes that precede a valid
// marker. A marker byte sequence that turns out to belong to a packet
// whose CRC fails is treated as noise: the cursor advances by one byte
// and scanning resumes, preferring the first marker candidate whose CRC
// actually validates.
type Reassembler struct {
	buf         []byte
	search      int
	dropped     int64
	crcFailures int64
	lg          logging.Logger
}

// NewReassembler creates an empty Reassembler that logs to the shared
// default logger.
func NewReassembler() *Reassembler { return &Reassembler{lg: logging.Default()} }

// WithLogger overrides the logger used for CRC-failure diagnostics.
func (r *Reassembler) WithLogger(lg logging.Logger) *Reassembler {
	r.lg = lg
	return r
}

// CrcFailures returns the number of candidate packets rejected for a CRC
// mismatch (spec.md §7 CrcFailed).
func (r *Reassembler) CrcFailures() int64 { return r.crcFailures }

// Push appends newly received bytes to the reassembly buffer.
func (r *Reassembler) Push(b []byte) {
	r.buf = append(r.buf, b...)
}

// Dropped returns the total number of bytes discarded so far while
// resynchronising on the marker. Useful for corruption diagnostics.
func (r *Reassembler) Dropped() int64 { return r.dropped }

// Pending returns the number of unconsumed bytes currently buffered.
func (r *Reassembler) Pending() int { return len(r.buf) }

// Reset discards all buffered bytes and resets the dropped-byte counter,
// used when a seek invalidates in-flight reassembly state (spec.md §4.7).
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.search = 0
	r.dropped = 0
}

// Next extracts the next complete, validated packet.
// It returns (nil, ErrNeedMore) when more bytes are required.
// The returned slice is an independent copy; it remains valid across
// subsequent Push/Next calls.
func (r *Reassembler) Next() (pkt []byte, err error) {
	for {
		i := indexOfMarker(r.buf, r.search)
		if i < 0 {
			// No candidate marker. Keep the last few bytes in case a
			// marker straddles the boundary with the next Push.
			if keep := len(Marker32) - 1; len(r.buf) > keep {
				drop := len(r.buf) - keep
				r.dropped += int64(drop)
				r.buf = r.buf[drop:]
			}
			r.search = 0
			return nil, ErrNeedMore
		}
		if i+HeaderSize > len(r.buf) {
			r.search = i
			return nil, ErrNeedMore
		}
		plen, _, _ := ReadFixed[uint16](r.buf[i+12 : i+14])
		flags, _, _ := ReadFixed[uint8](r.buf[i+14 : i+15])
		noCrc := PacketFlags(flags)&FNoCrc != 0
		need := HeaderSize + int(plen)
		if !noCrc {
			need += CrcSize
		}
		if i+need > len(r.buf) {
			r.search = i
			return nil, ErrNeedMore
		}
		valid := noCrc
		if !noCrc {
			want, _, _ := ReadFixed[uint16](r.buf[i+HeaderSize+int(plen) : i+need])
			valid = ValidateCrc(r.buf[i:i+HeaderSize+int(plen)], want)
		}
		if !valid {
			// False-positive marker (or genuine corruption): advance the
			// search cursor by one byte and keep looking.
			r.crcFailures++
			if r.lg != nil {
				r.lg.Debugf("wire: crc mismatch at offset %d, resyncing", i)
			}
			r.search = i + 1
			continue
		}
		if i > 0 {
			r.dropped += int64(i)
		}
		pkt = append([]byte(nil), r.buf[i:i+need]...)
		r.buf = r.buf[i+need:]
		r.search = 0
		return pkt, nil
	}
}

// Marker32 is Marker encoded as little-endian bytes, used to scan the
// reassembly buffer without allocating on every call.
var Marker32 = [4]byte{byte(Marker), byte(Marker >> 8), byte(Marker >> 16), byte(Marker >> 24)}

// indexOfMarker returns the offset of the first occurrence of Marker32
// in b at or after from, or -1 if none is present.
func indexOfMarker(b []byte, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+4 <= len(b); i++ {
		if b[i] == Marker32[0] && b[i+1] == Marker32[1] && b[i+2] == Marker32[2] && b[i+3] == Marker32[3] {
			return i
		}
	}
	return -1
}
