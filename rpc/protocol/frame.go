package protocol

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/serializer"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("protocol")

// --------------------------------------------------------------------------
// Wire Format
// --------------------------------------------------------------------------

// Frame header layout, all integers big endian:
//
//	offset  size  field
//	0       4     magic (0x01020304)
//	4       1     version
//	5       1     serializer id
//	6       1     message type
//	7       4     sequence id
//	11      1     reserved (written as 0xff, ignored on read)
//	12      4     payload length
const (
	HeaderSize = 16
	Version    = 1

	offVersion    = 4
	offSerializer = 5
	offType       = 6
	offSeq        = 7
	offReserved   = 11
	offLength     = 12

	reservedByte = 0xff
)

// Magic identifies a dRPC frame
var Magic = [4]byte{0x01, 0x02, 0x03, 0x04}

var (
	// ErrFrameTooLarge is returned for frames exceeding the configured limit.
	// The stream can not be resynchronized after it, the connection must be closed.
	ErrFrameTooLarge = errors.Mark(errors.New("frame too large"), common.ErrFraming)
	// ErrBadHeader is returned for frames with a wrong magic number, version or length
	ErrBadHeader = errors.Mark(errors.New("bad frame header"), common.ErrFraming)
)

// Header is the fixed size prefix of every frame
type Header struct {
	Version       uint8
	Serializer    common.SerializerAlgorithm
	MessageType   common.MessageType
	SeqID         uint32
	PayloadLength uint32
}

// ParseHeader validates magic and version and returns the header of frame
func ParseHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderSize {
		return Header{}, errors.Wrapf(ErrBadHeader, "frame of %d bytes is shorter than the header", len(frame))
	}
	if [4]byte(frame[:4]) != Magic {
		return Header{}, errors.Wrapf(ErrBadHeader, "bad magic number %#x", frame[:4])
	}
	h := Header{
		Version:       frame[offVersion],
		Serializer:    common.SerializerAlgorithm(frame[offSerializer]),
		MessageType:   common.MessageType(frame[offType]),
		SeqID:         binary.BigEndian.Uint32(frame[offSeq:offReserved]),
		PayloadLength: binary.BigEndian.Uint32(frame[offLength:HeaderSize]),
	}
	if h.Version != Version {
		return h, errors.Wrapf(ErrBadHeader, "unsupported version %d", h.Version)
	}
	return h, nil
}

// putHeader writes h into the first HeaderSize bytes of buf
func putHeader(buf []byte, h Header) {
	copy(buf[:4], Magic[:])
	buf[offVersion] = h.Version
	buf[offSerializer] = byte(h.Serializer)
	buf[offType] = byte(h.MessageType)
	binary.BigEndian.PutUint32(buf[offSeq:offReserved], h.SeqID)
	buf[offReserved] = reservedByte
	binary.BigEndian.PutUint32(buf[offLength:HeaderSize], h.PayloadLength)
}

// --------------------------------------------------------------------------
// Codec
// --------------------------------------------------------------------------

// Codec converts messages to frames and back. It holds no per connection
// state and is safe for concurrent use.
type Codec struct {
	maxFrameSize int
}

// NewCodec creates a codec enforcing maxFrameSize (header plus payload).
// A non positive value selects common.DefaultMaxFrameSize.
func NewCodec(maxFrameSize int) *Codec {
	if maxFrameSize <= 0 {
		maxFrameSize = common.DefaultMaxFrameSize
	}
	return &Codec{maxFrameSize: maxFrameSize}
}

// MaxFrameSize returns the enforced frame limit
func (c *Codec) MaxFrameSize() int {
	return c.maxFrameSize
}

// Encode serializes msg with alg and prefixes it with the frame header.
// The header sequence id is taken from msg.
func (c *Codec) Encode(msg common.Message, alg common.SerializerAlgorithm) ([]byte, error) {
	s, err := serializer.Lookup(alg)
	if err != nil {
		return nil, err
	}
	payload, err := s.Serialize(msg)
	if err != nil {
		return nil, err
	}
	if HeaderSize+len(payload) > c.maxFrameSize {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%s %d needs %d bytes, limit is %d",
			msg.Type(), msg.SeqID(), HeaderSize+len(payload), c.maxFrameSize)
	}

	frame := make([]byte, HeaderSize+len(payload))
	putHeader(frame, Header{
		Version:       Version,
		Serializer:    alg,
		MessageType:   msg.Type(),
		SeqID:         msg.SeqID(),
		PayloadLength: uint32(len(payload)),
	})
	copy(frame[HeaderSize:], payload)
	return frame, nil
}

// Decode turns a complete frame into its message (see DecodeWithHeader)
func (c *Codec) Decode(frame []byte) (common.Message, error) {
	_, msg, err := c.DecodeWithHeader(frame)
	return msg, err
}

// DecodeWithHeader validates the header of frame, selects the message type
// and serializer named by it and deserializes the payload. Header errors
// wrap common.ErrFraming, unknown serializers or message types and payload
// errors wrap common.ErrSerialization. The header sequence id is authoritative.
func (c *Codec) DecodeWithHeader(frame []byte) (Header, common.Message, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return h, nil, err
	}
	if available := len(frame) - HeaderSize; int(h.PayloadLength) != available {
		return h, nil, errors.Wrapf(ErrBadHeader, "declared payload length %d but %d bytes available",
			h.PayloadLength, available)
	}

	// the discriminant selects the decode target before the payload is touched
	msg, err := common.NewMessage(h.MessageType)
	if err != nil {
		return h, nil, err
	}
	s, err := serializer.Lookup(h.Serializer)
	if err != nil {
		return h, nil, err
	}
	if err := s.Deserialize(frame[HeaderSize:], msg); err != nil {
		return h, nil, err
	}

	if msg.SeqID() != h.SeqID {
		Logger.Debugf("payload sequence id %d differs from header sequence id %d, using header", msg.SeqID(), h.SeqID)
		msg.SetSeqID(h.SeqID)
	}
	return h, msg, nil
}

// --------------------------------------------------------------------------
// Stream Helpers
// --------------------------------------------------------------------------

// ReadFrame reads exactly one frame from r. The length field is checked
// against maxFrameSize before the payload is allocated; exceeding it yields
// ErrFrameTooLarge and leaves the stream unusable. Magic and version are not
// validated here, so a malformed frame is still consumed completely and the
// next frame can be read.
func ReadFrame(r io.Reader, maxFrameSize int) ([]byte, error) {
	if maxFrameSize <= 0 {
		maxFrameSize = common.DefaultMaxFrameSize
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	payloadLength := binary.BigEndian.Uint32(header[offLength:HeaderSize])
	if uint64(HeaderSize)+uint64(payloadLength) > uint64(maxFrameSize) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "declared payload length %d exceeds limit of %d bytes",
			payloadLength, maxFrameSize)
	}

	frame := make([]byte, HeaderSize+int(payloadLength))
	copy(frame, header[:])
	if _, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes a complete frame to w. Callers sharing w between
// goroutines must serialize calls.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) < HeaderSize {
		return errors.Wrapf(ErrBadHeader, "refusing to write %d byte frame", len(frame))
	}
	b := net.Buffers{frame[:HeaderSize], frame[HeaderSize:]}
	_, err := b.WriteTo(w)
	return err
}
