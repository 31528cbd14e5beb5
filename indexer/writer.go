package indexer

import (
	"fmt"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
)

// Writer is the only path to the store for derived records. It enforces
// the linkage invariants before anything is written: a record without a
// block hash or with a zero timestamp is dropped loudly, never coerced
// into a placeholder.
type Writer struct {
	dao      db.ExplorerDao
	counters *Counters
}

func NewWriter(dao db.ExplorerDao, counters *Counters) *Writer {
	return &Writer{dao: dao, counters: counters}
}

func validLinkage(blockHash string, blockTime int64) bool {
	return blockHash != "" && blockTime != 0
}

// Apply persists one transaction's row together with its derived
// records. Every write is an upsert on the record's natural key, so
// re-applying the same transaction converges on identical rows. The
// boolean reports whether the transaction was admitted at all.
func (w *Writer) Apply(txRow *db.Transaction, assets []*db.Asset, transfers []*db.AssetTransfer) (bool, error) {
	if !validLinkage(txRow.BlockHash, txRow.BlockTime) {
		w.counters.RejectedRecords += uint64(1 + len(assets) + len(transfers))
		logging.Logger.Errorf("reject tx %s and %d derived records: empty block hash or zero block time",
			txRow.TxID, len(assets)+len(transfers))
		return false, nil
	}

	keptAssets := make([]*db.Asset, 0, len(assets))
	for _, asset := range assets {
		if !validLinkage(asset.BlockHash, asset.BlockTime) {
			w.counters.RejectedRecords++
			logging.Logger.Errorf("reject asset record %s (tx %s): empty block hash or zero block time",
				asset.Name, txRow.TxID)
			continue
		}
		keptAssets = append(keptAssets, asset)
	}

	keptTransfers := make([]*db.AssetTransfer, 0, len(transfers))
	for _, transfer := range transfers {
		if !validLinkage(transfer.BlockHash, transfer.BlockTime) {
			w.counters.RejectedRecords++
			logging.Logger.Errorf("reject transfer record %s:%d: empty block hash or zero block time",
				transfer.TxID, transfer.OutputIndex)
			continue
		}
		keptTransfers = append(keptTransfers, transfer)
	}

	if err := w.dao.SaveTxRecords(txRow, keptAssets, keptTransfers); err != nil {
		return false, fmt.Errorf("save records of tx %s: %w", txRow.TxID, err)
	}
	w.counters.Txs++
	return true, nil
}
