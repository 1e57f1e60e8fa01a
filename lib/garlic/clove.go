package garlic

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

const (
	// MaxGarlicCloves is the practical limit for clove count
	MaxGarlicCloves = 64
	// minCloveSetSize is num(1) + cert(3) + msgID(4) + exp(8)
	minCloveSetSize  = 1 + 3 + 4 + 8
	cloveTrailerSize = 4 + 8 + 3
)

var (
	// ErrDecode is returned (wrapped) for any ciphertext or framing failure.
	ErrDecode = errors.New("garlic: malformed bundle")
	// ErrUnknownTag is returned (wrapped) when no key matches the session tag.
	ErrUnknownTag = errors.New("garlic: unknown session tag")
)

// nullCertificate is the 3-byte NULL certificate carried by cloves and bundles.
var nullCertificate = [3]byte{}

// Clove is one decrypted sub-message and its delivery instructions.
type Clove struct {
	Instructions i2np.DeliveryInstructions
	Message      i2np.I2NPMessage
	CloveID      uint32
	Expiration   time.Time
	// Err is set, and Message is nil, when the clove framed correctly but its
	// message was invalid or expired.
	Err error
}

// CloveSet is a decrypted garlic bundle.
type CloveSet struct {
	Cloves     []Clove
	MessageID  uint32
	Expiration time.Time
}

// CloveReceiver consumes cloves produced by Receiver.Receive.
type CloveReceiver interface {
	HandleClove(instructions i2np.DeliveryInstructions, msg i2np.I2NPMessage)
}

// MarshalBinary serializes the clove set into garlic plaintext.
func (cs *CloveSet) MarshalBinary() ([]byte, error) {
	if len(cs.Cloves) == 0 {
		return nil, oops.Errorf("cannot build garlic message with zero cloves")
	}
	if len(cs.Cloves) > MaxGarlicCloves {
		return nil, oops.Errorf("garlic message cannot contain more than %d cloves, got %d", MaxGarlicCloves, len(cs.Cloves))
	}

	buf := make([]byte, 0, minCloveSetSize+len(cs.Cloves)*128)
	buf = append(buf, byte(len(cs.Cloves)))
	for i := range cs.Cloves {
		cloveBytes, err := serializeClove(&cs.Cloves[i])
		if err != nil {
			return nil, oops.Wrapf(err, "failed to serialize garlic clove %d", i)
		}
		buf = append(buf, cloveBytes...)
	}
	buf = append(buf, nullCertificate[:]...)
	buf = binary.BigEndian.AppendUint32(buf, cs.MessageID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(cs.Expiration.UnixMilli()))
	return buf, nil
}

func serializeClove(clove *Clove) ([]byte, error) {
	if clove.Message == nil {
		return nil, oops.Errorf("clove has no message")
	}
	instructions, err := clove.Instructions.MarshalBinary()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to serialize delivery instructions")
	}
	message, err := clove.Message.MarshalBinary()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to serialize clove message")
	}

	buf := make([]byte, 0, len(instructions)+len(message)+cloveTrailerSize)
	buf = append(buf, instructions...)
	buf = append(buf, message...)
	buf = binary.BigEndian.AppendUint32(buf, clove.CloveID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(clove.Expiration.UnixMilli()))
	buf = append(buf, nullCertificate[:]...)
	return buf, nil
}

// rawClove is a clove whose framing parsed but whose message has not been
// decoded yet. Instructions with missing fields are kept; routing rejects them.
type rawClove struct {
	instructions i2np.DeliveryInstructions
	message      []byte
	cloveID      uint32
	expiration   time.Time
}

// parseCloveSet splits garlic plaintext into cloves. A framing error fails
// the whole set because the remaining clove boundaries are unknown.
func parseCloveSet(data []byte) ([]rawClove, uint32, time.Time, error) {
	if len(data) < minCloveSetSize {
		return nil, 0, time.Time{}, oops.Wrapf(ErrDecode, "garlic data too short: need at least %d bytes, got %d", minCloveSetSize, len(data))
	}
	count := int(data[0])
	if count > MaxGarlicCloves {
		return nil, 0, time.Time{}, oops.Wrapf(ErrDecode, "garlic clove count too high: %d > %d", count, MaxGarlicCloves)
	}

	offset := 1
	cloves := make([]rawClove, 0, count)
	for i := 0; i < count; i++ {
		clove, n, err := parseClove(data[offset:])
		if err != nil {
			return nil, 0, time.Time{}, oops.Wrapf(err, "failed to parse clove %d", i)
		}
		cloves = append(cloves, clove)
		offset += n
	}

	if len(data) < offset+3+4+8 {
		return nil, 0, time.Time{}, oops.Wrapf(ErrDecode, "insufficient data for garlic trailer")
	}
	offset += 3
	messageID := binary.BigEndian.Uint32(data[offset : offset+4])
	expiration := time.UnixMilli(int64(binary.BigEndian.Uint64(data[offset+4 : offset+12])))
	return cloves, messageID, expiration, nil
}

func parseClove(data []byte) (rawClove, int, error) {
	var clove rawClove
	di, offset, err := i2np.ReadDeliveryInstructions(data)
	if err != nil {
		return clove, 0, oops.Wrapf(ErrDecode, "delivery instructions: %v", err)
	}
	clove.instructions = di

	length, err := i2np.MessageLength(data[offset:])
	if err != nil || len(data) < offset+length {
		return clove, 0, oops.Wrapf(ErrDecode, "insufficient data for clove message at offset %d", offset)
	}
	clove.message = data[offset : offset+length]
	offset += length

	if len(data) < offset+cloveTrailerSize {
		return clove, 0, oops.Wrapf(ErrDecode, "insufficient data for clove trailer")
	}
	clove.cloveID = binary.BigEndian.Uint32(data[offset : offset+4])
	clove.expiration = time.UnixMilli(int64(binary.BigEndian.Uint64(data[offset+4 : offset+12])))
	return clove, offset + cloveTrailerSize, nil
}
