package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/types"
)

type ExplorerDao interface {
	BlockDB
	TransactionDB
	AssetDB
	TransferDB
	SyncStateDB
	SaveTxRecords(tx *Transaction, assets []*Asset, transfers []*AssetTransfer) error
}

type ExplorerSvcDB struct {
	db *gorm.DB
}

func NewExplorerSvcDB(db *gorm.DB) ExplorerDao {
	return &ExplorerSvcDB{
		db,
	}
}

type BlockDB interface {
	GetBlock(height uint64) (*Block, error)
	GetBlockByHash(hash string) (*Block, error)
	GetLatestBlock() (*Block, error)
	SaveBlock(block *Block) error
}

func (d *ExplorerSvcDB) GetBlock(height uint64) (*Block, error) {
	block := Block{}
	err := d.db.Model(Block{}).Where("height = ?", height).Take(&block).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &block, nil
}

func (d *ExplorerSvcDB) GetBlockByHash(hash string) (*Block, error) {
	block := Block{}
	err := d.db.Model(Block{}).Where("hash = ?", hash).Take(&block).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &block, nil
}

func (d *ExplorerSvcDB) GetLatestBlock() (*Block, error) {
	block := Block{}
	err := d.db.Model(Block{}).Order("height desc").Take(&block).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &block, nil
}

// SaveBlock inserts the block row, updating it in place when the height
// was already indexed by an earlier pass.
func (d *ExplorerSvcDB) SaveBlock(block *Block) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		err := dbTx.Create(block).Error
		if err != nil && IsDuplicateEntryErr(err) {
			return dbTx.Model(Block{}).Where("height = ?", block.Height).Updates(map[string]interface{}{
				"hash":        block.Hash,
				"parent_hash": block.ParentHash,
				"block_time":  block.BlockTime,
				"tx_count":    block.TxCount,
			}).Error
		}
		return err
	})
}

type TransactionDB interface {
	GetTransaction(txID string) (*Transaction, error)
	GetTransactionsByHeight(height uint64) ([]*Transaction, error)
	UpsertTransaction(tx *Transaction) error
}

func (d *ExplorerSvcDB) GetTransaction(txID string) (*Transaction, error) {
	tx := Transaction{}
	err := d.db.Model(Transaction{}).Where("tx_id = ?", txID).Take(&tx).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &tx, nil
}

func (d *ExplorerSvcDB) GetTransactionsByHeight(height uint64) ([]*Transaction, error) {
	txs := make([]*Transaction, 0)
	if err := d.db.Where("block_height = ?", height).Order("id asc").Find(&txs).Error; err != nil {
		return txs, err
	}
	return txs, nil
}

func upsertTransaction(dbTx *gorm.DB, tx *Transaction) error {
	return dbTx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tx_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"block_height", "block_hash", "block_time", "type_code", "value_out_sat",
		}),
	}).Create(tx).Error
}

func (d *ExplorerSvcDB) UpsertTransaction(tx *Transaction) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return upsertTransaction(dbTx, tx)
	})
}

type AssetDB interface {
	GetAssetByID(assetID string) (*Asset, error)
	GetAssetByName(name string) (*Asset, error)
	GetSubAssets(parentAssetID string) ([]*Asset, error)
	GetSentinelAssets() ([]*Asset, error)
	GetAssetIDs() ([]string, error)
	UpsertAsset(asset *Asset) error
	UpdateAssetFields(assetID string, fields map[string]interface{}) error
	RefreshAssetSupply(assetID string) error
}

func (d *ExplorerSvcDB) GetAssetByID(assetID string) (*Asset, error) {
	asset := Asset{}
	err := d.db.Model(Asset{}).Where("asset_id = ?", assetID).Take(&asset).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &asset, nil
}

func (d *ExplorerSvcDB) GetAssetByName(name string) (*Asset, error) {
	asset := Asset{}
	err := d.db.Model(Asset{}).Where("name = ?", name).Take(&asset).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &asset, nil
}

func (d *ExplorerSvcDB) GetSubAssets(parentAssetID string) ([]*Asset, error) {
	assets := make([]*Asset, 0)
	if err := d.db.Where("parent_asset_id = ? and is_sub_asset = ?", parentAssetID, true).
		Order("id asc").Find(&assets).Error; err != nil {
		return assets, err
	}
	return assets, nil
}

// GetSentinelAssets returns sub-assets whose declared root was missing
// when they were indexed, i.e. whose parent name is still unresolved.
func (d *ExplorerSvcDB) GetSentinelAssets() ([]*Asset, error) {
	assets := make([]*Asset, 0)
	if err := d.db.Where("is_sub_asset = ? and parent_asset_name = ?", true, "").
		Order("id asc").Find(&assets).Error; err != nil {
		return assets, err
	}
	return assets, nil
}

func (d *ExplorerSvcDB) GetAssetIDs() ([]string, error) {
	ids := make([]string, 0)
	if err := d.db.Model(Asset{}).Order("id asc").Pluck("asset_id", &ids).Error; err != nil {
		return ids, err
	}
	return ids, nil
}

// upsertAsset writes the declared fields of an asset keyed by its
// creating txid. Derived supply columns are left untouched so a
// re-processed creation cannot clobber accumulated mint totals.
func upsertAsset(dbTx *gorm.DB, asset *Asset) error {
	return dbTx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "asset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "is_root", "is_sub_asset", "parent_asset_id", "parent_asset_name",
			"sub_asset_name", "decimals", "max_mint_count", "owner_address", "updatable",
			"is_unique", "reference_hash", "block_height", "block_hash", "block_time",
		}),
	}).Create(asset).Error
}

func (d *ExplorerSvcDB) UpsertAsset(asset *Asset) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return upsertAsset(dbTx, asset)
	})
}

func (d *ExplorerSvcDB) UpdateAssetFields(assetID string, fields map[string]interface{}) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return dbTx.Model(Asset{}).Where("asset_id = ?", assetID).Updates(fields).Error
	})
}

// RefreshAssetSupply recomputes the mint count and supplies from the
// stored mint transfers. Deriving instead of incrementing keeps supply
// stable when the same mint is processed more than once.
func (d *ExplorerSvcDB) RefreshAssetSupply(assetID string) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		var agg struct {
			Total float64
			Cnt   int64
		}
		err := dbTx.Model(AssetTransfer{}).
			Select("COALESCE(SUM(amount), 0) as total, COUNT(*) as cnt").
			Where("asset_id = ? and kind = ?", assetID, types.TransferKindMint).
			Take(&agg).Error
		if err != nil {
			return err
		}
		return dbTx.Model(Asset{}).Where("asset_id = ?", assetID).Updates(map[string]interface{}{
			"mint_count":         agg.Cnt,
			"circulating_supply": agg.Total,
			"total_supply":       agg.Total,
		}).Error
	})
}

type TransferDB interface {
	GetTransfer(txID string, outputIndex int32) (*AssetTransfer, error)
	GetTransfersByTx(txID string) ([]*AssetTransfer, error)
	GetTransfersByAsset(assetID string) ([]*AssetTransfer, error)
	UpsertTransfer(transfer *AssetTransfer) error
	DeleteTransfersInRange(fromHeight, toHeight uint64) (int64, error)
}

func (d *ExplorerSvcDB) GetTransfer(txID string, outputIndex int32) (*AssetTransfer, error) {
	transfer := AssetTransfer{}
	err := d.db.Model(AssetTransfer{}).Where("tx_id = ? and output_index = ?", txID, outputIndex).
		Take(&transfer).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &transfer, nil
}

func (d *ExplorerSvcDB) GetTransfersByTx(txID string) ([]*AssetTransfer, error) {
	transfers := make([]*AssetTransfer, 0)
	if err := d.db.Where("tx_id = ?", txID).Order("output_index asc").Find(&transfers).Error; err != nil {
		return transfers, err
	}
	return transfers, nil
}

func (d *ExplorerSvcDB) GetTransfersByAsset(assetID string) ([]*AssetTransfer, error) {
	transfers := make([]*AssetTransfer, 0)
	if err := d.db.Where("asset_id = ?", assetID).Order("block_height asc, output_index asc").
		Find(&transfers).Error; err != nil {
		return transfers, err
	}
	return transfers, nil
}

func upsertTransfer(dbTx *gorm.DB, transfer *AssetTransfer) error {
	return dbTx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tx_id"}, {Name: "output_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind", "asset_id", "asset_name", "from_addr", "to_addr", "amount",
			"block_height", "block_hash", "block_time",
		}),
	}).Create(transfer).Error
}

func (d *ExplorerSvcDB) UpsertTransfer(transfer *AssetTransfer) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return upsertTransfer(dbTx, transfer)
	})
}

// DeleteTransfersInRange removes derived transfer rows for a height
// range ahead of a backfill re-walk. Destructive; callers gate it
// behind an explicit confirmation.
func (d *ExplorerSvcDB) DeleteTransfersInRange(fromHeight, toHeight uint64) (int64, error) {
	res := d.db.Where("block_height >= ? and block_height <= ?", fromHeight, toHeight).
		Delete(&AssetTransfer{})
	return res.RowsAffected, res.Error
}

type SyncStateDB interface {
	GetSyncState(name string) (*SyncState, error)
	SaveSyncState(state *SyncState) error
}

func (d *ExplorerSvcDB) GetSyncState(name string) (*SyncState, error) {
	state := SyncState{}
	err := d.db.Model(SyncState{}).Where("name = ?", name).Take(&state).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &state, nil
}

// SaveSyncState persists the stream watermark. Each stream has a single
// logical writer, so a plain save keyed by the loaded primary key is
// sufficient.
func (d *ExplorerSvcDB) SaveSyncState(state *SyncState) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return dbTx.Save(state).Error
	})
}

// SaveTxRecords persists one transaction's row together with the assets
// and transfers derived from it. All or nothing, so a failure cannot
// leave a transaction visible without its derived records.
func (d *ExplorerSvcDB) SaveTxRecords(tx *Transaction, assets []*Asset, transfers []*AssetTransfer) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		if err := upsertTransaction(dbTx, tx); err != nil {
			return err
		}
		for _, asset := range assets {
			if err := upsertAsset(dbTx, asset); err != nil {
				return err
			}
		}
		for _, transfer := range transfers {
			if err := upsertTransfer(dbTx, transfer); err != nil {
				return err
			}
		}
		return nil
	})
}

func AutoMigrateDB(db *gorm.DB) {
	var err error
	if err = db.AutoMigrate(&Block{}); err != nil {
		panic(err)
	}
	if err = db.AutoMigrate(&Transaction{}); err != nil {
		panic(err)
	}
	if err = db.AutoMigrate(&Asset{}); err != nil {
		panic(err)
	}
	if err = db.AutoMigrate(&AssetTransfer{}); err != nil {
		panic(err)
	}
	if err = db.AutoMigrate(&SyncState{}); err != nil {
		panic(err)
	}
}
