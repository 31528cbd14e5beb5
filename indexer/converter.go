package indexer

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
)

// blockRef is the block linkage stamped on every record derived from
// that block.
type blockRef struct {
	height uint64
	hash   string
	time   int64
}

// DisplayAmount converts a raw smallest-unit amount into display units
// using the asset's decimal precision. Raw integers never reach the
// store.
func DisplayAmount(raw int64, decimals uint8) float64 {
	if decimals == 0 {
		return float64(raw)
	}
	return float64(raw) / math.Pow10(int(decimals))
}

func convertTransaction(ref blockRef, tx *rtm.Tx) (*db.Transaction, error) {
	var total btcutil.Amount
	for _, out := range tx.Vout {
		amt, err := btcutil.NewAmount(out.Value)
		if err != nil {
			return nil, fmt.Errorf("convert output value %v of tx %s: %w", out.Value, tx.TxID, err)
		}
		total += amt
	}
	return &db.Transaction{
		TxID:        tx.TxID,
		BlockHeight: ref.height,
		BlockHash:   ref.hash,
		BlockTime:   ref.time,
		TypeCode:    tx.Type,
		ValueOutSat: int64(total),
	}, nil
}
