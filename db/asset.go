package db

// Asset is the registry row for a root or sub-asset. AssetID is the txid
// of the creating transaction and is the uniqueness anchor; Name is
// deliberately not unique since two orphaned sub-assets may both carry
// the UNKNOWN placeholder prefix until their roots are indexed.
type Asset struct {
	Id                int64
	AssetID           string `gorm:"NOT NULL;uniqueIndex:idx_asset_asset_id;size:64"`
	Name              string `gorm:"NOT NULL;index:idx_asset_name;size:128"`
	IsRoot            bool
	IsSubAsset        bool   `gorm:"index:idx_asset_is_sub"`
	ParentAssetID     string `gorm:"index:idx_asset_parent_id;size:64"` // declared root txid, kept even while unresolved
	ParentAssetName   string `gorm:"size:128"`                          // canonical upper-cased form, empty while unresolved
	SubAssetName      string `gorm:"size:128"`                          // child segment as declared, case preserved
	Decimals          uint8
	MaxMintCount      int64
	MintCount         int64   // derived from mint transfers
	TotalSupply       float64 // display units
	CirculatingSupply float64 // display units
	OwnerAddress      string  `gorm:"size:64"`
	Updatable         bool
	IsUnique          bool
	ReferenceHash     string `gorm:"size:128"`
	BlockHeight       uint64 `gorm:"index:idx_asset_height"`
	BlockHash         string `gorm:"NOT NULL;size:64"`
	BlockTime         int64  `gorm:"NOT NULL"`
}

func (*Asset) TableName() string {
	return "asset"
}
