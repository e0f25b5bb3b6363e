package wire

import "fmt"

// Marker is the 32-bit constant that begins every valid packet.
const Marker uint32 = 0x03E55E30

// HeaderSize is the number of bytes preceding the payload.
const HeaderSize = 16

// CrcSize is the number of trailing bytes used for the CRC, when present.
const CrcSize = 2

// MaxPacketSize is the largest packet the 16-bit payload-length field
// can describe (spec.md §3: total size <= 65535).
const MaxPacketSize = 0xFFFF

// MaxPayloadSize is the largest payload writable into a single packet.
const MaxPayloadSize = MaxPacketSize - HeaderSize - CrcSize

// VersionMajor and VersionMinor are the wire format version this package
// implements (spec.md §1 Non-goals: only the current major/minor version
// is specified).
const (
	VersionMajor uint16 = 0
	VersionMinor uint16 = 3
)

// Header mirrors the fixed fields preceding a packet's payload.
type Header struct {
	VersionMajor uint16
	VersionMinor uint16
	RoutingID    RoutingID
	MessageID    MessageID
	PayloadSize  uint16
	Flags        PacketFlags
	Reserved     uint8
}

// Packet is a fully decoded wire packet: header, payload and (unless
// FNoCrc is set) the CRC that validated it.
type Packet struct {
	Header
	Payload []byte
	Crc     uint16
}

// NoCrc reports whether the packet omits a trailing CRC.
func (p *Packet) NoCrc() bool { return p.Flags&FNoCrc != 0 }

// Writer builds a single packet's bytes: header placeholder, payload
// cursor, and a Finish step that stamps the header and computes the CRC.
// This mirrors the teacher's GLB writer in gltf/glb.go — reserve a fixed
// header, accumulate a payload buffer, then patch the header fields once
// the final size is known — generalised from a one-shot JSON+BIN blob to
// a reusable, repeatedly-finalisable packet builder.
type Writer struct {
	routingID RoutingID
	messageID MessageID
	flags     PacketFlags
	buf       []byte
}

// NewWriter creates a Writer for a packet with the given routing and
// message IDs.
func NewWriter(routingID RoutingID, messageID MessageID) *Writer {
	return &Writer{routingID: routingID, messageID: messageID}
}

// SetNoCrc configures the writer to omit the trailing CRC.
func (w *Writer) SetNoCrc(noCrc bool) {
	if noCrc {
		w.flags |= FNoCrc
	} else {
		w.flags &^= FNoCrc
	}
}

// WriteElement appends a single fixed-width value to the payload cursor.
func WriteElement[T Fixed](w *Writer, v T) error {
	if len(w.buf)+sizeOf(v) > MaxPayloadSize {
		return ErrBufferFull
	}
	w.buf = WriteFixed(w.buf, v)
	return nil
}

// WriteArrayElements appends count fixed-width values to the payload cursor.
func WriteArrayElements[T Fixed](w *Writer, v []T) error {
	var zero T
	if len(w.buf)+sizeOf(zero)*len(v) > MaxPayloadSize {
		return ErrBufferFull
	}
	w.buf = WriteArray(w.buf, v)
	return nil
}

// WriteBytes appends raw bytes to the payload cursor (used for
// length-prefixed strings and already-encoded sub-structures).
func (w *Writer) WriteBytes(b []byte) error {
	if len(w.buf)+len(b) > MaxPayloadSize {
		return ErrBufferFull
	}
	w.buf = append(w.buf, b...)
	return nil
}

// Len returns the number of payload bytes accumulated so far.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes exposes the payload accumulated so far for in-place patching
// (used by callers that reserve a field, keep writing, then go back and
// stamp a count or length once it is known).
func (w *Writer) Bytes() []byte { return w.buf }

// Reset clears the payload cursor so the Writer can be reused for
// another packet with a (possibly different) routing/message ID.
func (w *Writer) Reset(routingID RoutingID, messageID MessageID) {
	w.routingID = routingID
	w.messageID = messageID
	w.buf = w.buf[:0]
}

// Finish stamps the header, computes the CRC (unless SetNoCrc(true) was
// called) and returns the complete packet bytes. It fails with
// ErrBufferFull if the accumulated payload cannot fit the 16-bit length
// field, though WriteElement/WriteArrayElements/WriteBytes already
// refuse to grow past that point.
func (w *Writer) Finish() ([]byte, error) {
	if len(w.buf) > MaxPayloadSize {
		return nil, ErrBufferFull
	}
	total := HeaderSize + len(w.buf)
	if w.flags&FNoCrc == 0 {
		total += CrcSize
	}
	out := make([]byte, 0, total)
	var tmp []byte
	tmp = WriteFixed(tmp, Marker)
	tmp = WriteFixed(tmp, VersionMajor)
	tmp = WriteFixed(tmp, VersionMinor)
	tmp = WriteFixed(tmp, uint16(w.routingID))
	tmp = WriteFixed(tmp, uint16(w.messageID))
	tmp = WriteFixed(tmp, uint16(len(w.buf)))
	tmp = WriteFixed(tmp, uint8(w.flags))
	tmp = WriteFixed(tmp, uint8(0)) // reserved
	out = append(out, tmp...)
	out = append(out, w.buf...)
	if w.flags&FNoCrc == 0 {
		out = WriteFixed(out, crc16(out))
	}
	return out, nil
}

// Reader decodes a single packet from a non-owning byte span, tracking a
// read cursor the way the teacher's GLB reader tracks an io.Reader
// position — except here the span is already known to be a complete,
// CRC-validated (or NoCrc) packet, handed over by the stream
// reassembler.
type Reader struct {
	Packet
	off int
}

// NewReader decodes the header and payload of a single packet from b,
// which must contain exactly one packet's bytes (header + payload +
// optional CRC), as produced by the stream reassembler or Writer.Finish.
func NewReader(b []byte) (*Reader, error) {
	if len(b) < HeaderSize {
		return nil, ErrTruncated
	}
	marker, _, _ := ReadFixed[uint32](b[0:4])
	if marker != Marker {
		return nil, fmt.Errorf("%w: bad marker", ErrMalformed)
	}
	vmaj, _, _ := ReadFixed[uint16](b[4:6])
	vmin, _, _ := ReadFixed[uint16](b[6:8])
	rid, _, _ := ReadFixed[uint16](b[8:10])
	mid, _, _ := ReadFixed[uint16](b[10:12])
	plen, _, _ := ReadFixed[uint16](b[12:14])
	flags, _, _ := ReadFixed[uint8](b[14:15])
	reserved, _, _ := ReadFixed[uint8](b[15:16])

	need := HeaderSize + int(plen)
	noCrc := PacketFlags(flags)&FNoCrc != 0
	if !noCrc {
		need += CrcSize
	}
	if len(b) < need {
		return nil, ErrTruncated
	}
	payload := b[HeaderSize : HeaderSize+int(plen)]
	var crc uint16
	if !noCrc {
		crc, _, _ = ReadFixed[uint16](b[HeaderSize+int(plen):])
	}
	p := Packet{
		Header: Header{
			VersionMajor: vmaj,
			VersionMinor: vmin,
			RoutingID:    RoutingID(rid),
			MessageID:    MessageID(mid),
			PayloadSize:  plen,
			Flags:        PacketFlags(flags),
			Reserved:     reserved,
		},
		Payload: payload,
		Crc:     crc,
	}
	return &Reader{Packet: p}, nil
}

// Size returns the total byte length this packet occupies on the wire,
// including header and (if present) CRC.
func (p *Packet) Size() int {
	n := HeaderSize + int(p.PayloadSize)
	if !p.NoCrc() {
		n += CrcSize
	}
	return n
}

// ReadElement reads a single fixed-width value from the payload cursor.
func ReadElement[T Fixed](r *Reader) (v T, err error) {
	v, n, err := ReadFixed[T](r.Payload[r.off:])
	if err != nil {
		return v, err
	}
	r.off += n
	return v, nil
}

// ReadArrayElements reads count fixed-width values from the payload cursor.
func ReadArrayElements[T Fixed](r *Reader, count int) (v []T, err error) {
	v, n, err := ReadArray[T](r.Payload[r.off:], count)
	if err != nil {
		return nil, err
	}
	r.off += n
	return v, nil
}

// ReadBytes reads n raw bytes from the payload cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if r.off+n > len(r.Payload) {
		return nil, ErrTruncated
	}
	b := r.Payload[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Remaining returns the number of unread payload bytes.
func (r *Reader) Remaining() int { return len(r.Payload) - r.off }

// Rewind resets the read cursor to the start of the payload.
func (r *Reader) Rewind() { r.off = 0 }
