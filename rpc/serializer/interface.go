package serializer

import (
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("serializer")

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// ID returns the one byte id written into the frame header
	ID() common.SerializerAlgorithm
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into msg
	// msg must be the empty decode target returned by common.NewMessage
	// It returns an error wrapping common.ErrSerialization if any
	Deserialize(b []byte, msg common.Message) error
}
