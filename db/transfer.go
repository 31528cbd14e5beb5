package db

// AssetTransfer records one asset movement: a mint into circulation or
// an output-level transfer inside a standard transaction. TxID plus
// OutputIndex is the natural key, so re-processing a block rewrites the
// same rows instead of appending duplicates.
type AssetTransfer struct {
	Id          int64
	TxID        string `gorm:"NOT NULL;uniqueIndex:idx_transfer_tx_out,priority:1;size:64"`
	OutputIndex int32  `gorm:"NOT NULL;uniqueIndex:idx_transfer_tx_out,priority:2"`
	Kind        string `gorm:"NOT NULL;size:16"`
	AssetID     string `gorm:"index:idx_transfer_asset_id;size:64"`
	AssetName   string `gorm:"index:idx_transfer_asset_name;size:128"`
	FromAddr    string `gorm:"size:64"` // empty for mints
	ToAddr      string `gorm:"size:64"`
	Amount      float64 // display units, converted with the asset's decimals
	BlockHeight uint64  `gorm:"index:idx_transfer_height"`
	BlockHash   string  `gorm:"NOT NULL;size:64"`
	BlockTime   int64   `gorm:"NOT NULL"`
}

func (*AssetTransfer) TableName() string {
	return "asset_transfer"
}
