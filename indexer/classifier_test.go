package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		want TxKind
	}{
		{"standard", rtm.TxTypeStandard, KindStandard},
		{"coinbase", rtm.TxTypeCoinbase, KindStandard},
		{"future send", rtm.TxTypeFutureSend, KindStandard},
		{"provider register", rtm.TxTypeProviderRegister, KindStandard},
		{"quorum commitment", rtm.TxTypeQuorumCommitment, KindStandard},
		{"new asset", rtm.TxTypeNewAsset, KindAssetCreate},
		{"update asset", rtm.TxTypeUpdateAsset, KindAssetUpdate},
		{"mint asset", rtm.TxTypeMintAsset, KindAssetMint},
		{"unknown code 11", 11, KindUnknown},
		{"unknown code 255", 255, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(&rtm.Tx{Type: tt.code})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTxKindString(t *testing.T) {
	assert.Equal(t, "standard", KindStandard.String())
	assert.Equal(t, "asset_create", KindAssetCreate.String())
	assert.Equal(t, "asset_mint", KindAssetMint.String())
	assert.Equal(t, "asset_update", KindAssetUpdate.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
