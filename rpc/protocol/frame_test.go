package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
)

var algorithms = []common.SerializerAlgorithm{common.AlgObject, common.AlgJSON, common.AlgBinary}

var sayHello = common.MethodDescriptor{
	Name:       "SayHello",
	ParamTypes: []common.TypeDescriptor{common.TypeString},
	ReturnType: common.TypeString,
}

// mustEncode encodes msg or fails the test
func mustEncode(t *testing.T, c *Codec, msg common.Message, alg common.SerializerAlgorithm) []byte {
	t.Helper()
	frame, err := c.Encode(msg, alg)
	if err != nil {
		t.Fatalf("Failed to encode %s with %s: %v", msg.Type(), alg, err)
	}
	return frame
}

// TestHeaderLayout tests the exact byte layout of the frame header
func TestHeaderLayout(t *testing.T) {
	c := NewCodec(0)
	frame := mustEncode(t, c, common.NewSuccessResponse(0x0A0B0C0D, "ok"), common.AlgJSON)

	expected := []byte{0x01, 0x02, 0x03, 0x04, Version, byte(common.AlgJSON), byte(common.MsgTResponse),
		0x0A, 0x0B, 0x0C, 0x0D, 0xff}
	if !bytes.Equal(frame[:12], expected) {
		t.Errorf("Header mismatch:\nExpected: % x\nGot:      % x", expected, frame[:12])
	}
	if length := binary.BigEndian.Uint32(frame[12:16]); int(length) != len(frame)-HeaderSize {
		t.Errorf("Payload length field is %d, payload has %d bytes", length, len(frame)-HeaderSize)
	}
}

// TestCodecRoundTrip tests request and response frames with every serializer
func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(common.DefaultMaxFrameSize)

	for _, alg := range algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			messages := []common.Message{
				common.NewRequest(1, "IHelloService", sayHello, "yanan"),
				common.NewSuccessResponse(2, "Hello, yanan"),
				common.NewErrorResponse(3, &common.RemoteError{Kind: common.KindServiceNotFound, Message: "no service IFoo"}),
			}

			for _, msg := range messages {
				frame := mustEncode(t, c, msg, alg)

				// read the frame back from a stream before decoding
				read, err := ReadFrame(bytes.NewReader(frame), c.MaxFrameSize())
				if err != nil {
					t.Fatalf("Failed to read frame: %v", err)
				}

				h, decoded, err := c.DecodeWithHeader(read)
				if err != nil {
					t.Fatalf("Failed to decode %s: %v", msg.Type(), err)
				}
				if h.Serializer != alg || h.MessageType != msg.Type() || h.SeqID != msg.SeqID() {
					t.Errorf("Unexpected header %+v for %s %d", h, msg.Type(), msg.SeqID())
				}
				if !reflect.DeepEqual(msg, decoded) {
					t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v", msg, decoded)
				}
			}
		})
	}
}

// TestHeaderSequenceIsAuthoritative tests that the header wins over the payload sequence id
func TestHeaderSequenceIsAuthoritative(t *testing.T) {
	c := NewCodec(0)
	frame := mustEncode(t, c, common.NewSuccessResponse(7, "x"), common.AlgObject)
	binary.BigEndian.PutUint32(frame[offSeq:offReserved], 99)

	msg, err := c.Decode(frame)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if msg.SeqID() != 99 {
		t.Errorf("Expected sequence id 99, got %d", msg.SeqID())
	}
}

// TestReservedByteIgnored tests that any value of the reserved byte is accepted
func TestReservedByteIgnored(t *testing.T) {
	c := NewCodec(0)
	frame := mustEncode(t, c, common.NewSuccessResponse(1, "x"), common.AlgBinary)
	frame[offReserved] = 0x00

	if _, err := c.Decode(frame); err != nil {
		t.Errorf("Reserved byte must be ignored, got: %v", err)
	}
}

// TestDecodeErrors tests the classification of malformed frames
func TestDecodeErrors(t *testing.T) {
	c := NewCodec(0)
	valid := mustEncode(t, c, common.NewRequest(5, "IHelloService", sayHello, "yanan"), common.AlgBinary)

	mutate := func(f func(frame []byte) []byte) []byte {
		frame := append([]byte(nil), valid...)
		return f(frame)
	}

	testCases := []struct {
		name     string
		frame    []byte
		expected error
	}{
		{
			name:     "Short frame",
			frame:    valid[:10],
			expected: common.ErrFraming,
		},
		{
			name:     "Bad magic",
			frame:    mutate(func(f []byte) []byte { f[0] = 0xca; return f }),
			expected: common.ErrFraming,
		},
		{
			name:     "Bad version",
			frame:    mutate(func(f []byte) []byte { f[offVersion] = 2; return f }),
			expected: common.ErrFraming,
		},
		{
			name: "Declared length exceeds available bytes",
			frame: mutate(func(f []byte) []byte {
				binary.BigEndian.PutUint32(f[offLength:HeaderSize], uint32(len(f)))
				return f
			}),
			expected: common.ErrFraming,
		},
		{
			name:     "Unknown serializer",
			frame:    mutate(func(f []byte) []byte { f[offSerializer] = 9; return f }),
			expected: common.ErrSerialization,
		},
		{
			name:     "Unknown message type",
			frame:    mutate(func(f []byte) []byte { f[offType] = 7; return f }),
			expected: common.ErrSerialization,
		},
		{
			name:     "Corrupt payload",
			frame:    mutate(func(f []byte) []byte { f[HeaderSize] = byte(common.MsgTResponse); return f }),
			expected: common.ErrSerialization,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decode(tc.frame)
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
		})
	}
}

// TestOversizeFrame tests that oversize frames are rejected on both ends
func TestOversizeFrame(t *testing.T) {
	c := NewCodec(64)
	big := common.NewRequest(1, "IHelloService", sayHello, strings.Repeat("x", 128))

	if _, err := c.Encode(big, common.AlgBinary); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Expected ErrFrameTooLarge from Encode, got %v", err)
	}

	frame := mustEncode(t, NewCodec(0), big, common.AlgBinary)
	_, err := ReadFrame(bytes.NewReader(frame), 64)
	if !errors.Is(err, ErrFrameTooLarge) || !errors.Is(err, common.ErrFraming) {
		t.Errorf("Expected ErrFrameTooLarge from ReadFrame, got %v", err)
	}
}

// TestStreamContinuesAfterBadFrame tests that a malformed frame does not break the following frames
func TestStreamContinuesAfterBadFrame(t *testing.T) {
	c := NewCodec(0)
	bad := mustEncode(t, c, common.NewRequest(1, "IHelloService", sayHello, "a"), common.AlgJSON)
	bad[0] = 0x00 // bad magic
	good := mustEncode(t, c, common.NewRequest(2, "IHelloService", sayHello, "b"), common.AlgJSON)

	var stream bytes.Buffer
	if err := WriteFrame(&stream, bad); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
	if err := WriteFrame(&stream, good); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}

	first, err := ReadFrame(&stream, c.MaxFrameSize())
	if err != nil {
		t.Fatalf("Failed to read first frame: %v", err)
	}
	if _, err := c.Decode(first); !errors.Is(err, ErrBadHeader) {
		t.Errorf("Expected ErrBadHeader for first frame, got %v", err)
	}

	second, err := ReadFrame(&stream, c.MaxFrameSize())
	if err != nil {
		t.Fatalf("Failed to read second frame: %v", err)
	}
	msg, err := c.Decode(second)
	if err != nil {
		t.Fatalf("Failed to decode second frame: %v", err)
	}
	if msg.SeqID() != 2 {
		t.Errorf("Expected sequence id 2, got %d", msg.SeqID())
	}

	if _, err := ReadFrame(&stream, c.MaxFrameSize()); err != io.EOF {
		t.Errorf("Expected io.EOF at end of stream, got %v", err)
	}
}

// TestTruncatedStream tests that a frame cut off in the payload is reported
func TestTruncatedStream(t *testing.T) {
	frame := mustEncode(t, NewCodec(0), common.NewSuccessResponse(1, "Hello"), common.AlgObject)
	_, err := ReadFrame(bytes.NewReader(frame[:len(frame)-1]), 0)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
}
