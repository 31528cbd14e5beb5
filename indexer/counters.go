package indexer

import "fmt"

// Counters aggregates one run's pipeline outcomes. The sync daemon logs
// them as it advances; the backfill tool prints them as its final
// summary. The pipeline is single-threaded, so plain fields suffice.
type Counters struct {
	Blocks              uint64
	Txs                 uint64
	AssetsCreated       uint64
	AssetsUpdated       uint64
	Mints               uint64
	Transfers           uint64
	SentinelParents     uint64
	SkippedUnknownType  uint64
	SkippedMissingAsset uint64
	SkippedUpdates      uint64
	RejectedRecords     uint64
	Errors              uint64
}

func (c Counters) String() string {
	return fmt.Sprintf(
		"blocks=%d txs=%d assets_created=%d assets_updated=%d mints=%d transfers=%d "+
			"sentinel_parents=%d skipped_unknown_type=%d skipped_missing_asset=%d "+
			"skipped_updates=%d rejected_records=%d errors=%d",
		c.Blocks, c.Txs, c.AssetsCreated, c.AssetsUpdated, c.Mints, c.Transfers,
		c.SentinelParents, c.SkippedUnknownType, c.SkippedMissingAsset,
		c.SkippedUpdates, c.RejectedRecords, c.Errors,
	)
}
