package types

// Asset transfer kinds recorded in the asset_transfer table.
const (
	TransferKindMint     = "mint"
	TransferKindTransfer = "transfer"
)

// Sync stream names. The daemon and the backfill tool each own one
// sync_state row and never touch the other's.
const (
	SyncStreamMain     = "main"
	SyncStreamBackfill = "backfill"
)

// Sync stream statuses persisted in sync_state.status.
const (
	SyncStatusIdle      = "idle"
	SyncStatusAdvancing = "advancing"
	SyncStatusCaughtUp  = "caught_up"
	SyncStatusError     = "error"
)
