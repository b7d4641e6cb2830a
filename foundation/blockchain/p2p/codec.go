package p2p

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/fxamacker/cbor/v2"
)

// ProtocolVersion is the version of the wire format spoken by this node.
const ProtocolVersion = 1

// MaxFrameSize is the largest frame accepted from a peer.
const MaxFrameSize = 32 << 20

// Set of error variables for reading frames.
var (
	ErrFrameTooLarge = errors.New("frame too large")
	ErrMalformed     = errors.New("malformed message")
)

// envelope is the CBOR structure carried by every frame.
type envelope struct {
	Version uint16          `cbor:"1,keyasint"`
	Kind    Kind            `cbor:"2,keyasint"`
	Payload cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}

	decOpts := cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(err)
	}
}

// Encode marshals the message into an envelope.
func Encode(msg Message) ([]byte, error) {
	var payload any

	switch m := msg.(type) {
	case TxMessage:
		payload = database.NewTxData(m.Tx)
	case BlockMessage:
		payload = database.NewBlockData(m.Block)
	case ChainRequest:
	case ChainSnapshot:
		payload = database.NewBlocksData(m.Blocks)
	default:
		return nil, fmt.Errorf("unknown message type %T", msg)
	}

	env := envelope{
		Version: ProtocolVersion,
		Kind:    msg.Kind(),
	}

	if payload != nil {
		raw, err := encMode.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}

	return encMode.Marshal(env)
}

// Decode unmarshals an envelope into the message it carries. Transaction ids
// are recomputed and must match the declared ids.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}

	if env.Version != ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version %d", env.Version)
	}

	switch env.Kind {
	case KindTx:
		var txData database.TxData
		if err := decMode.Unmarshal(env.Payload, &txData); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Kind, err)
		}

		tx, err := database.ToTx(txData)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", env.Kind, err)
		}

		return TxMessage{Tx: tx}, nil

	case KindBlock:
		var blockData database.BlockData
		if err := decMode.Unmarshal(env.Payload, &blockData); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Kind, err)
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", env.Kind, err)
		}

		return BlockMessage{Block: block}, nil

	case KindChainRequest:
		return ChainRequest{}, nil

	case KindChainSnapshot:
		var data []database.BlockData
		if err := decMode.Unmarshal(env.Payload, &data); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Kind, err)
		}

		blocks, err := database.ToBlocks(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", env.Kind, err)
		}

		return ChainSnapshot{Blocks: blocks}, nil
	}

	return nil, fmt.Errorf("unknown message kind %d", env.Kind)
}

// WriteFrame writes the message as a length prefixed frame.
func WriteFrame(w io.Writer, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	_, err = w.Write(frame)
	return err
}

// ReadFrame reads the next length prefixed frame and decodes its message.
func ReadFrame(r io.Reader) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	msg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return msg, nil
}
