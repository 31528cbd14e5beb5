package db

// SyncState is the progress watermark of one sync stream. The daemon
// owns the "main" row, the backfill tool the "backfill" row. Height is
// the last height whose records are all durably written; it advances
// only after the whole block is applied.
type SyncState struct {
	Id        int64
	Name      string `gorm:"NOT NULL;uniqueIndex:idx_sync_state_name;size:32"`
	Height    uint64
	Status    string `gorm:"size:16"`
	Blocks    uint64 // diagnostic counters, cumulative per stream
	Txs       uint64
	AssetTxs  uint64
	LastError string `gorm:"size:256"`
	UpdatedAt int64  `gorm:"autoUpdateTime"`
}

func (*SyncState) TableName() string {
	return "sync_state"
}
