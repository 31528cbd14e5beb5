package rtm

// Transaction type codes carried in verbose transaction JSON. The
// special-transaction codes below cover every type the chain emits
// today; anything else is treated as unknown by the pipeline.
const (
	TxTypeStandard                uint16 = 0
	TxTypeProviderRegister        uint16 = 1
	TxTypeProviderUpdateService   uint16 = 2
	TxTypeProviderUpdateRegistrar uint16 = 3
	TxTypeProviderUpdateRevoke    uint16 = 4
	TxTypeCoinbase                uint16 = 5
	TxTypeQuorumCommitment        uint16 = 6
	TxTypeFutureSend              uint16 = 7
	TxTypeNewAsset                uint16 = 8
	TxTypeUpdateAsset             uint16 = 9
	TxTypeMintAsset               uint16 = 10
)

// Block is the verbosity-2 getblock response: header fields plus fully
// decoded transactions.
type Block struct {
	Hash              string `json:"hash"`
	Height            uint64 `json:"height"`
	PreviousBlockHash string `json:"previousblockhash"`
	Time              int64  `json:"time"`
	Txs               []Tx   `json:"tx"`
}

type Tx struct {
	TxID string `json:"txid"`
	Type uint16 `json:"type"`
	Vin  []Vin  `json:"vin"`
	Vout []Vout `json:"vout"`

	// Exactly one of these is set for the asset transaction types.
	NewAsset    *NewAssetPayload    `json:"newAsset,omitempty"`
	MintAsset   *MintAssetPayload   `json:"mintAsset,omitempty"`
	UpdateAsset *UpdateAssetPayload `json:"updateAsset,omitempty"`
}

type Vin struct {
	Coinbase string `json:"coinbase,omitempty"`
	TxID     string `json:"txid,omitempty"`
	Vout     uint32 `json:"vout,omitempty"`
	Address  string `json:"address,omitempty"` // filled by the node's address index
}

type Vout struct {
	Value        float64      `json:"value"` // plain coin value in whole-coin units
	N            uint32       `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

type ScriptPubKey struct {
	Type      string     `json:"type"`
	Addresses []string   `json:"addresses,omitempty"`
	Asset     *VoutAsset `json:"asset,omitempty"` // present on asset-carrying outputs
}

// VoutAsset marks an output as carrying asset units. Amount is in the
// asset's raw smallest units; the indexer converts it with the asset's
// decimal precision before anything is stored.
type VoutAsset struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// NewAssetPayload declares a root or sub-asset. Sub-assets carry only
// the child-local name; the composed form appears on chain only after
// the indexer joins it with the declared root.
type NewAssetPayload struct {
	Name          string `json:"name"`
	IsRoot        bool   `json:"isRoot"`
	RootID        string `json:"rootId,omitempty"` // creating txid of the declared root
	IsUnique      bool   `json:"isUnique"`
	MaxMintCount  int64  `json:"maxMintCount"`
	Decimals      uint8  `json:"decimals"`
	ReferenceHash string `json:"referenceHash,omitempty"`
	OwnerAddress  string `json:"ownerAddress,omitempty"`
	Updatable     *bool  `json:"updatable,omitempty"` // defaults to true when absent
}

func (p *NewAssetPayload) IsUpdatable() bool {
	if p.Updatable == nil {
		return true
	}
	return *p.Updatable
}

type MintAssetPayload struct {
	AssetName     string `json:"assetName"` // full composed name
	Amount        int64  `json:"amount"`    // raw smallest units
	TargetAddress string `json:"targetAddress"`
}

// UpdateAssetPayload mutates the updatable metadata of an existing
// asset. Absent fields are left unchanged.
type UpdateAssetPayload struct {
	AssetName     string  `json:"assetName"`
	Updatable     *bool   `json:"updatable,omitempty"`
	ReferenceHash *string `json:"referenceHash,omitempty"`
	OwnerAddress  *string `json:"ownerAddress,omitempty"`
	MaxMintCount  *int64  `json:"maxMintCount,omitempty"`
}

// FirstInputAddress returns the address attribution for a transfer's
// sender: the address of the first non-coinbase input, or empty when
// the index did not supply one.
func (t *Tx) FirstInputAddress() string {
	for _, in := range t.Vin {
		if in.Coinbase != "" {
			continue
		}
		return in.Address
	}
	return ""
}

func (t *Tx) IsCoinbase() bool {
	return len(t.Vin) == 1 && t.Vin[0].Coinbase != ""
}
