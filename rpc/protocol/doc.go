// Package protocol implements the dRPC wire format: the 16 byte frame header,
// length prefixed frame delimiting and the conversion between frames and
// messages (Codec). It also provides the SequenceGenerator used to correlate
// responses with requests.
//
// A frame is only decoded after it was read completely. Errors are split in
// two classes:
//
//   - ErrFrameTooLarge is returned by ReadFrame and means the stream is lost.
//   - ErrBadHeader and serialization errors are returned by Codec.Decode for
//     a frame that was fully consumed. The frame can be discarded and the next
//     frame read from the same stream.
package protocol
