package service

import (
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/cache"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
)

// Explorer is the read-only query boundary over the synced store. API
// frontends consume it; nothing behind it mutates chain-derived rows.
type Explorer interface {
	GetBlockByHeight(height uint64) (*db.Block, error)
	GetBlockByHash(hash string) (*db.Block, error)
	GetLatestBlock() (*db.Block, error)
	GetTransaction(txID string) (*db.Transaction, error)
	GetTransactionsByHeight(height uint64) ([]*db.Transaction, error)
	GetAsset(assetID string) (*db.Asset, error)
	GetAssetByName(name string) (*db.Asset, error)
	GetSubAssets(parentAssetID string) ([]*db.Asset, error)
	GetAssetTransfers(assetID string) ([]*db.AssetTransfer, error)
	GetTransfersByTx(txID string) ([]*db.AssetTransfer, error)
	GetSyncStatus(stream string) (*db.SyncState, error)
}

type ExplorerService struct {
	explorerDB   db.ExplorerDao
	cacheService cache.Cache
}

func NewExplorerService(explorerDB db.ExplorerDao, cacheService cache.Cache) Explorer {
	return &ExplorerService{
		explorerDB:   explorerDB,
		cacheService: cacheService,
	}
}

func (e ExplorerService) GetBlockByHeight(height uint64) (*db.Block, error) {
	block, err := e.explorerDB.GetBlock(height)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	if block.Id == 0 {
		return nil, ErrBlockNotFound
	}
	return block, nil
}

func (e ExplorerService) GetBlockByHash(hash string) (*db.Block, error) {
	block, err := e.explorerDB.GetBlockByHash(hash)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	if block.Id == 0 {
		return nil, ErrBlockNotFound
	}
	return block, nil
}

func (e ExplorerService) GetLatestBlock() (*db.Block, error) {
	block, err := e.explorerDB.GetLatestBlock()
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	if block.Id == 0 {
		return nil, ErrBlockNotFound
	}
	return block, nil
}

func (e ExplorerService) GetTransaction(txID string) (*db.Transaction, error) {
	tx, err := e.explorerDB.GetTransaction(txID)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	if tx.Id == 0 {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

func (e ExplorerService) GetTransactionsByHeight(height uint64) ([]*db.Transaction, error) {
	txs, err := e.explorerDB.GetTransactionsByHeight(height)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	return txs, nil
}

func (e ExplorerService) GetAsset(assetID string) (*db.Asset, error) {
	if cached, found := e.cacheService.Get(cache.AssetIDKey(assetID)); found {
		if asset, ok := cached.(*db.Asset); ok {
			return asset, nil
		}
	}
	asset, err := e.explorerDB.GetAssetByID(assetID)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	if asset.Id == 0 {
		return nil, ErrAssetNotFound
	}
	e.cacheService.Set(cache.AssetIDKey(assetID), asset)
	return asset, nil
}

func (e ExplorerService) GetAssetByName(name string) (*db.Asset, error) {
	if cached, found := e.cacheService.Get(cache.AssetNameKey(name)); found {
		if asset, ok := cached.(*db.Asset); ok {
			return asset, nil
		}
	}
	asset, err := e.explorerDB.GetAssetByName(name)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	if asset.Id == 0 {
		return nil, ErrAssetNotFound
	}
	e.cacheService.Set(cache.AssetNameKey(name), asset)
	return asset, nil
}

func (e ExplorerService) GetSubAssets(parentAssetID string) ([]*db.Asset, error) {
	assets, err := e.explorerDB.GetSubAssets(parentAssetID)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	return assets, nil
}

func (e ExplorerService) GetAssetTransfers(assetID string) ([]*db.AssetTransfer, error) {
	transfers, err := e.explorerDB.GetTransfersByAsset(assetID)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	return transfers, nil
}

func (e ExplorerService) GetTransfersByTx(txID string) ([]*db.AssetTransfer, error) {
	transfers, err := e.explorerDB.GetTransfersByTx(txID)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	return transfers, nil
}

func (e ExplorerService) GetSyncStatus(stream string) (*db.SyncState, error) {
	state, err := e.explorerDB.GetSyncState(stream)
	if err != nil {
		return nil, InternalError.Enrich(err.Error())
	}
	if state.Id == 0 {
		return nil, ErrStreamNotFound
	}
	return state, nil
}
