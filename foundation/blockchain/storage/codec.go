package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// version is the format of the blobs written by this package.
const version = 1

// envelope wraps every blob with the format version it was written with.
type envelope struct {
	Version uint16          `cbor:"1,keyasint"`
	Payload cbor.RawMessage `cbor:"2,keyasint"`
}

// utxoData is the persisted form of a ledger entry.
type utxoData struct {
	TxID    string `cbor:"1,keyasint"`
	Index   int    `cbor:"2,keyasint"`
	Value   string `cbor:"3,keyasint"`
	Address string `cbor:"4,keyasint"`
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

	// A chain can hold more blocks than the default decoding limits allow.
	decOpts := cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes the value inside a versioned envelope.
func Marshal(v any) ([]byte, error) {
	payload, err := encMode.Marshal(v)
	if err != nil {
		return nil, err
	}

	return encMode.Marshal(envelope{Version: version, Payload: payload})
}

// Unmarshal decodes a versioned envelope into the value.
func Unmarshal(data []byte, v any) error {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return err
	}

	if env.Version != version {
		return fmt.Errorf("unsupported format version %d, exp %d", env.Version, version)
	}

	return decMode.Unmarshal(env.Payload, v)
}
