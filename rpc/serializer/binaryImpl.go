package serializer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"math"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for bulk payloads
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	MsgType(1) flags(1) [Kind(1)] [Count(8)] [n(4) Ints(n*8)] [len(4) Value] [len(4) Err]
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKind  byte = 1 << 0
	hasCount byte = 1 << 1
	hasInts  byte = 1 << 2
	hasValue byte = 1 << 3
	hasErr   byte = 1 << 4
)

// ErrFieldTooLarge is returned when a field does not fit its 4 byte length
var ErrFieldTooLarge = errors.New("field exceeds the binary length limit")

// fieldLength checks that n elements of field fit a length prefix
func fieldLength(field string, n uint64) error {
	if n > math.MaxUint32 {
		return fmt.Errorf("%w: %s has %d elements, at most %d", ErrFieldTooLarge, field, n, uint64(math.MaxUint32))
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if err := fieldLength("ints", uint64(len(msg.Ints))); err != nil {
		return nil, err
	}
	if err := fieldLength("value", uint64(len(msg.Value))); err != nil {
		return nil, err
	}
	if err := fieldLength("error", uint64(len(msg.Err))); err != nil {
		return nil, err
	}

	result := make([]byte, b.sizeBytes(msg))

	result[0] = byte(msg.MsgType)
	var flags byte = 0
	pos := 2 // Start after MsgType and flags

	if msg.Kind != 0 {
		flags |= hasKind
		result[pos] = msg.Kind
		pos++
	}

	if msg.Count != 0 {
		flags |= hasCount
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Count)
		pos += 8
	}

	if msg.Ints != nil {
		flags |= hasInts
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Ints)))
		pos += 4
		for _, v := range msg.Ints {
			binary.BigEndian.PutUint64(result[pos:pos+8], v)
			pos += 8
		}
	}

	if msg.Value != nil {
		flags |= hasValue
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Value)))
		pos += 4
		pos += copy(result[pos:], msg.Value)
	}

	if msg.Err != "" {
		flags |= hasErr
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Err)))
		pos += 4
		copy(result[pos:], msg.Err)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	pos := 2

	if flags&hasKind != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for kind")
		}
		msg.Kind = data[pos]
		pos++
	}

	if flags&hasCount != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for count")
		}
		msg.Count = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	if flags&hasInts != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for ints length")
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n*8 > len(data) {
			return fmt.Errorf("data too short for %d ints", n)
		}
		msg.Ints = make([]uint64, n)
		for i := range msg.Ints {
			msg.Ints[i] = binary.BigEndian.Uint64(data[pos : pos+8])
			pos += 8
		}
	}

	if flags&hasValue != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for value length")
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return fmt.Errorf("data too short for value data")
		}
		// Always a fresh slice: the frame buffer may be reused by the transport
		msg.Value = make([]byte, n)
		copy(msg.Value, data[pos:pos+n])
		pos += n
	}

	if flags&hasErr != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for error length")
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return fmt.Errorf("data too short for error data")
		}
		msg.Err = string(data[pos : pos+n])
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := 2 // MsgType + flags

	if msg.Kind != 0 {
		size++
	}
	if msg.Count != 0 {
		size += 8
	}
	if msg.Ints != nil {
		size += 4 + 8*len(msg.Ints)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	return size
}
