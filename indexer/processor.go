package indexer

import (
	"fmt"
	"strings"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/cache"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/types"
)

// Processor turns classified transactions into asset registry rows and
// transfer records. The same instance serves the live sync loop and the
// backfill tool; both paths go through the writer's guards and end in
// upserts, so re-processing any block converges on the same rows.
type Processor struct {
	dao        db.ExplorerDao
	assetCache cache.Cache
	writer     *Writer
	counters   Counters
}

func NewProcessor(dao db.ExplorerDao, assetCache cache.Cache) *Processor {
	p := &Processor{
		dao:        dao,
		assetCache: assetCache,
	}
	p.writer = NewWriter(dao, &p.counters)
	return p
}

// Counters returns a snapshot of the pipeline counters.
func (p *Processor) Counters() Counters {
	return p.counters
}

// ProcessBlock feeds every transaction of the block through the
// pipeline in order. Store failures abort the block so the caller can
// retry it; data anomalies are logged, counted and skipped without
// interrupting the rest of the block.
func (p *Processor) ProcessBlock(block *rtm.Block) error {
	ref := blockRef{height: block.Height, hash: block.Hash, time: block.Time}
	for i := range block.Txs {
		tx := &block.Txs[i]
		if err := p.processTx(ref, tx); err != nil {
			return fmt.Errorf("tx %s: %w", tx.TxID, err)
		}
	}
	p.counters.Blocks++
	return nil
}

func (p *Processor) processTx(ref blockRef, tx *rtm.Tx) error {
	txRow, err := convertTransaction(ref, tx)
	if err != nil {
		p.counters.Errors++
		logging.Logger.Errorf("drop tx %s, err=%s", tx.TxID, err.Error())
		return nil
	}

	kind := Classify(tx)

	var (
		assets    []*db.Asset
		transfers []*db.AssetTransfer
		minted    *db.Asset
	)
	switch kind {
	case KindAssetCreate:
		asset, err := p.deriveCreation(ref, tx)
		if err != nil {
			return err
		}
		if asset != nil {
			assets = append(assets, asset)
		}
	case KindAssetMint:
		transfer, asset, err := p.deriveMint(ref, tx)
		if err != nil {
			return err
		}
		if transfer != nil {
			transfers = append(transfers, transfer)
			minted = asset
		}
	case KindStandard:
		trs, err := p.deriveTransfers(ref, tx)
		if err != nil {
			return err
		}
		transfers = append(transfers, trs...)
	case KindUnknown:
		p.counters.SkippedUnknownType++
		logging.Logger.Debugf("tx %s carries unknown type code %d, indexing the plain row only",
			tx.TxID, tx.Type)
	}

	applied, err := p.writer.Apply(txRow, assets, transfers)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	for _, asset := range assets {
		p.invalidateAsset(asset)
	}
	switch kind {
	case KindAssetCreate:
		p.counters.AssetsCreated += uint64(len(assets))
	case KindAssetMint:
		if minted != nil {
			if err := p.dao.RefreshAssetSupply(minted.AssetID); err != nil {
				return fmt.Errorf("refresh supply of %s: %w", minted.Name, err)
			}
			p.invalidateAsset(minted)
			p.counters.Mints++
		}
	case KindStandard:
		p.counters.Transfers += uint64(len(transfers))
	case KindAssetUpdate:
		if err := p.applyUpdate(tx); err != nil {
			return err
		}
	}
	return nil
}

// deriveCreation builds the registry row for a creation transaction.
// Root versus sub-asset comes from the declared isRoot/rootId fields
// alone; the raw name is never sniffed for a delimiter, since a
// sub-asset's payload carries only the child-local segment.
func (p *Processor) deriveCreation(ref blockRef, tx *rtm.Tx) (*db.Asset, error) {
	payload := tx.NewAsset
	if payload == nil {
		p.counters.Errors++
		logging.Logger.Errorf("creation tx %s carries no asset payload", tx.TxID)
		return nil, nil
	}

	asset := &db.Asset{
		AssetID:       tx.TxID,
		IsRoot:        payload.IsRoot,
		Decimals:      payload.Decimals,
		MaxMintCount:  payload.MaxMintCount,
		OwnerAddress:  payload.OwnerAddress,
		Updatable:     payload.IsUpdatable(),
		IsUnique:      payload.IsUnique,
		ReferenceHash: payload.ReferenceHash,
		BlockHeight:   ref.height,
		BlockHash:     ref.hash,
		BlockTime:     ref.time,
	}

	if payload.IsRoot {
		asset.Name = payload.Name
		return asset, nil
	}

	asset.IsSubAsset = true
	asset.SubAssetName = payload.Name
	asset.ParentAssetID = payload.RootID

	parent, err := p.lookupAssetByID(payload.RootID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		// The declared root is not indexed yet. Record the sub-asset
		// under the placeholder name; a later backfill resolves it once
		// the root exists.
		asset.Name = types.ComposeSentinelName(payload.Name)
		p.counters.SentinelParents++
		logging.Logger.Warningf("sub-asset %q (tx %s) references missing root %s, recording sentinel parent",
			payload.Name, tx.TxID, payload.RootID)
		return asset, nil
	}

	asset.ParentAssetName = strings.ToUpper(parent.Name)
	asset.Name = types.ComposeSubAssetName(parent.Name, payload.Name)
	return asset, nil
}

// deriveMint resolves the minted asset and builds the mint transfer.
// The amount is converted to display units here; without the asset's
// decimals no record can be written, so mints of unknown assets are
// skipped until a backfill after the creation has been indexed.
func (p *Processor) deriveMint(ref blockRef, tx *rtm.Tx) (*db.AssetTransfer, *db.Asset, error) {
	payload := tx.MintAsset
	if payload == nil {
		p.counters.Errors++
		logging.Logger.Errorf("mint tx %s carries no asset payload", tx.TxID)
		return nil, nil, nil
	}

	asset, err := p.lookupAssetByName(payload.AssetName)
	if err != nil {
		return nil, nil, err
	}
	if asset == nil {
		p.counters.SkippedMissingAsset++
		logging.Logger.Warningf("mint tx %s references unknown asset %q, skipping", tx.TxID, payload.AssetName)
		return nil, nil, nil
	}

	// Use the asset-bearing output's index when the daemon exposes it;
	// the fallback keeps the natural key deterministic either way.
	idx := int32(0)
	for _, out := range tx.Vout {
		if out.ScriptPubKey.Asset != nil && out.ScriptPubKey.Asset.Name == payload.AssetName {
			idx = int32(out.N)
			break
		}
	}

	transfer := &db.AssetTransfer{
		TxID:        tx.TxID,
		OutputIndex: idx,
		Kind:        types.TransferKindMint,
		AssetID:     asset.AssetID,
		AssetName:   asset.Name,
		ToAddr:      payload.TargetAddress,
		Amount:      DisplayAmount(payload.Amount, asset.Decimals),
		BlockHeight: ref.height,
		BlockHash:   ref.hash,
		BlockTime:   ref.time,
	}
	return transfer, asset, nil
}

// deriveTransfers scans a standard transaction's outputs for asset
// markers. Sender attribution uses the first input's address, which
// misattributes multi-input spends; the upstream index gives nothing
// better per output.
func (p *Processor) deriveTransfers(ref blockRef, tx *rtm.Tx) ([]*db.AssetTransfer, error) {
	var transfers []*db.AssetTransfer
	from := tx.FirstInputAddress()
	for _, out := range tx.Vout {
		marker := out.ScriptPubKey.Asset
		if marker == nil {
			continue
		}
		asset, err := p.lookupAssetByName(marker.Name)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			p.counters.SkippedMissingAsset++
			logging.Logger.Warningf("transfer output %s:%d references unknown asset %q, skipping",
				tx.TxID, out.N, marker.Name)
			continue
		}
		to := ""
		if len(out.ScriptPubKey.Addresses) > 0 {
			to = out.ScriptPubKey.Addresses[0]
		}
		transfers = append(transfers, &db.AssetTransfer{
			TxID:        tx.TxID,
			OutputIndex: int32(out.N),
			Kind:        types.TransferKindTransfer,
			AssetID:     asset.AssetID,
			AssetName:   asset.Name,
			FromAddr:    from,
			ToAddr:      to,
			Amount:      DisplayAmount(marker.Amount, asset.Decimals),
			BlockHeight: ref.height,
			BlockHash:   ref.hash,
			BlockTime:   ref.time,
		})
	}
	return transfers, nil
}

// applyUpdate mutates the updatable metadata of an existing asset.
// Updates arriving before the creation are consistency anomalies: they
// are logged and skipped, never materialized as half-formed assets.
func (p *Processor) applyUpdate(tx *rtm.Tx) error {
	payload := tx.UpdateAsset
	if payload == nil {
		p.counters.Errors++
		logging.Logger.Errorf("update tx %s carries no asset payload", tx.TxID)
		return nil
	}

	asset, err := p.lookupAssetByName(payload.AssetName)
	if err != nil {
		return err
	}
	if asset == nil {
		p.counters.SkippedUpdates++
		logging.Logger.Warningf("update tx %s references unknown asset %q, skipping", tx.TxID, payload.AssetName)
		return nil
	}

	fields := map[string]interface{}{}
	if payload.Updatable != nil {
		fields["updatable"] = *payload.Updatable
	}
	if payload.ReferenceHash != nil {
		fields["reference_hash"] = *payload.ReferenceHash
	}
	if payload.OwnerAddress != nil {
		fields["owner_address"] = *payload.OwnerAddress
	}
	if payload.MaxMintCount != nil {
		fields["max_mint_count"] = *payload.MaxMintCount
	}
	if len(fields) == 0 {
		return nil
	}

	if err := p.dao.UpdateAssetFields(asset.AssetID, fields); err != nil {
		return fmt.Errorf("update asset %s: %w", asset.Name, err)
	}
	p.invalidateAsset(asset)
	p.counters.AssetsUpdated++
	return nil
}

// RelinkSubAssets resolves sentinel-parent sub-assets whose declared
// root has been indexed since they were written. Purely a store repair;
// no chain access.
func (p *Processor) RelinkSubAssets() (resolved, remaining int, err error) {
	sentinels, err := p.dao.GetSentinelAssets()
	if err != nil {
		return 0, 0, err
	}
	for _, sub := range sentinels {
		parent, err := p.lookupAssetByID(sub.ParentAssetID)
		if err != nil {
			return resolved, remaining, err
		}
		if parent == nil {
			remaining++
			continue
		}
		fullName := types.ComposeSubAssetName(parent.Name, sub.SubAssetName)
		err = p.dao.UpdateAssetFields(sub.AssetID, map[string]interface{}{
			"name":              fullName,
			"parent_asset_name": strings.ToUpper(parent.Name),
		})
		if err != nil {
			return resolved, remaining, fmt.Errorf("relink sub-asset %s: %w", sub.AssetID, err)
		}
		p.assetCache.Remove(cache.AssetIDKey(sub.AssetID))
		p.assetCache.Remove(cache.AssetNameKey(sub.Name))
		resolved++
		logging.Logger.Infof("relinked sub-asset %s under parent %s", fullName, parent.Name)
	}
	return resolved, remaining, nil
}

// RecomputeSupplies re-derives mint counts and supplies for every
// asset from the stored mint transfers.
func (p *Processor) RecomputeSupplies() (int, error) {
	ids, err := p.dao.GetAssetIDs()
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := p.dao.RefreshAssetSupply(id); err != nil {
			return i, fmt.Errorf("refresh supply of asset %s: %w", id, err)
		}
		asset, err := p.dao.GetAssetByID(id)
		if err != nil {
			return i, err
		}
		if asset.Id != 0 {
			p.invalidateAsset(asset)
		}
	}
	return len(ids), nil
}

func (p *Processor) lookupAssetByID(assetID string) (*db.Asset, error) {
	if assetID == "" {
		return nil, nil
	}
	if cached, ok := p.assetCache.Get(cache.AssetIDKey(assetID)); ok {
		if asset, ok := cached.(*db.Asset); ok {
			return asset, nil
		}
	}
	asset, err := p.dao.GetAssetByID(assetID)
	if err != nil {
		return nil, err
	}
	if asset.Id == 0 {
		return nil, nil
	}
	p.cacheAsset(asset)
	return asset, nil
}

func (p *Processor) lookupAssetByName(name string) (*db.Asset, error) {
	if name == "" {
		return nil, nil
	}
	if cached, ok := p.assetCache.Get(cache.AssetNameKey(name)); ok {
		if asset, ok := cached.(*db.Asset); ok {
			return asset, nil
		}
	}
	asset, err := p.dao.GetAssetByName(name)
	if err != nil {
		return nil, err
	}
	if asset.Id == 0 {
		return nil, nil
	}
	p.cacheAsset(asset)
	return asset, nil
}

func (p *Processor) cacheAsset(asset *db.Asset) {
	p.assetCache.Set(cache.AssetIDKey(asset.AssetID), asset)
	p.assetCache.Set(cache.AssetNameKey(asset.Name), asset)
}

func (p *Processor) invalidateAsset(asset *db.Asset) {
	p.assetCache.Remove(cache.AssetIDKey(asset.AssetID))
	p.assetCache.Remove(cache.AssetNameKey(asset.Name))
}
