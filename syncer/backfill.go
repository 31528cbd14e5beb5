package syncer

import (
	"fmt"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/indexer"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/types"
)

// Backfiller re-walks a height range through the same pipeline as the
// live sync. Re-walks repair gaps, mints that were skipped while their
// asset was unknown, and sub-assets indexed before their root. All
// writes are upserts, so overlapping the live range is safe.
type Backfiller struct {
	dao       db.ExplorerDao
	chain     rtm.ChainSource
	processor *indexer.Processor
}

type BackfillOptions struct {
	From uint64
	To   uint64
	// ClearFirst drops the stored transfers in the range before the
	// walk. Destructive; the command gates it behind an explicit
	// confirmation flag.
	ClearFirst bool
}

func NewBackfiller(dao db.ExplorerDao, chain rtm.ChainSource, processor *indexer.Processor) *Backfiller {
	return &Backfiller{
		dao:       dao,
		chain:     chain,
		processor: processor,
	}
}

// Run walks [From, To] in ascending order and returns the pipeline
// counters of the pass. Progress is tracked on the backfill stream's
// own state row, never on the daemon's.
func (b *Backfiller) Run(opts BackfillOptions) (indexer.Counters, error) {
	if opts.To < opts.From {
		return indexer.Counters{}, fmt.Errorf("invalid range, from %d is above to %d", opts.From, opts.To)
	}
	tip, err := b.chain.ChainHeight()
	if err != nil {
		return indexer.Counters{}, fmt.Errorf("failed to get chain height from node, err=%s", err.Error())
	}
	if opts.To > tip {
		return indexer.Counters{}, fmt.Errorf("range end %d is beyond chain tip %d", opts.To, tip)
	}

	if opts.ClearFirst {
		n, err := b.dao.DeleteTransfersInRange(opts.From, opts.To)
		if err != nil {
			return indexer.Counters{}, fmt.Errorf("failed to clear transfers in range, err=%s", err.Error())
		}
		logging.Logger.Infof("cleared %d transfer rows in range [%d, %d]", n, opts.From, opts.To)
	}

	state, err := b.dao.GetSyncState(types.SyncStreamBackfill)
	if err != nil {
		return indexer.Counters{}, fmt.Errorf("failed to get sync state from db, err=%s", err.Error())
	}
	if state.Id == 0 {
		state.Name = types.SyncStreamBackfill
	}
	state.Status = types.SyncStatusAdvancing
	state.LastError = ""

	start := b.processor.Counters()
	for height := opts.From; height <= opts.To; height++ {
		if err = b.processHeight(height); err != nil {
			state.Status = types.SyncStatusError
			state.LastError = truncateErrMsg(err)
			if saveErr := b.dao.SaveSyncState(state); saveErr != nil {
				logging.Logger.Errorf("failed to save backfill state, err=%s", saveErr.Error())
			}
			return diffCounters(start, b.processor.Counters()), err
		}
		state.Height = height
		state.Blocks++
		if err = b.dao.SaveSyncState(state); err != nil {
			return diffCounters(start, b.processor.Counters()),
				fmt.Errorf("failed to save backfill state at height %d, err=%s", height, err.Error())
		}
	}

	state.Status = types.SyncStatusIdle
	if err = b.dao.SaveSyncState(state); err != nil {
		return diffCounters(start, b.processor.Counters()),
			fmt.Errorf("failed to save backfill state, err=%s", err.Error())
	}
	return diffCounters(start, b.processor.Counters()), nil
}

func (b *Backfiller) processHeight(height uint64) error {
	block, err := b.chain.BlockByHeight(height)
	if err != nil {
		return fmt.Errorf("failed to get block at height %d, err=%s", height, err.Error())
	}
	if block.Hash == "" || block.Time == 0 {
		return fmt.Errorf("malformed block at height %d, empty hash or zero timestamp", height)
	}
	if err = b.dao.SaveBlock(&db.Block{
		Height:     block.Height,
		Hash:       block.Hash,
		ParentHash: block.PreviousBlockHash,
		BlockTime:  block.Time,
		TxCount:    len(block.Txs),
	}); err != nil {
		return fmt.Errorf("failed to save block at height %d, err=%s", height, err.Error())
	}
	if err = b.processor.ProcessBlock(block); err != nil {
		return fmt.Errorf("failed to process block at height %d, err=%s", height, err.Error())
	}
	return nil
}

// RelinkSubAssets resolves sub-assets recorded under the sentinel
// parent whose declared root has been indexed since.
func (b *Backfiller) RelinkSubAssets() (resolved, remaining int, err error) {
	return b.processor.RelinkSubAssets()
}

// RecomputeSupplies re-derives every asset's mint count and supplies
// from the stored mint transfers.
func (b *Backfiller) RecomputeSupplies() (int, error) {
	return b.processor.RecomputeSupplies()
}

func diffCounters(before, after indexer.Counters) indexer.Counters {
	return indexer.Counters{
		Blocks:              after.Blocks - before.Blocks,
		Txs:                 after.Txs - before.Txs,
		AssetsCreated:       after.AssetsCreated - before.AssetsCreated,
		AssetsUpdated:       after.AssetsUpdated - before.AssetsUpdated,
		Mints:               after.Mints - before.Mints,
		Transfers:           after.Transfers - before.Transfers,
		SentinelParents:     after.SentinelParents - before.SentinelParents,
		SkippedUnknownType:  after.SkippedUnknownType - before.SkippedUnknownType,
		SkippedMissingAsset: after.SkippedMissingAsset - before.SkippedMissingAsset,
		SkippedUpdates:      after.SkippedUpdates - before.SkippedUpdates,
		RejectedRecords:     after.RejectedRecords - before.RejectedRecords,
		Errors:              after.Errors - before.Errors,
	}
}
