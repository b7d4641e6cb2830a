package nameservice_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameService(t *testing.T) {
	root := t.TempDir() + "/accounts"

	ns, err := nameservice.New(root)
	require.NoError(t, err, "should accept a missing folder")
	assert.Empty(t, ns.Copy())

	pk, err := ns.Create("miner1")
	require.NoError(t, err)

	_, err = ns.Create("miner1")
	assert.Error(t, err, "should refuse a name twice")

	loaded, err := nameservice.New(root)
	require.NoError(t, err)

	address := signature.PublicKeyToAddress(pk.PublicKey)
	assert.Equal(t, "miner1", loaded.Lookup(address))
	assert.Equal(t, "unknown", loaded.Lookup("unknown"))

	got, exists := loaded.PrivateKey("miner1")
	require.True(t, exists)
	assert.True(t, got.Equal(pk))
}
