package syncer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/config"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/indexer"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/metrics"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/types"
)

// last_error column is 256 wide, keep headroom for truncation marks
const maxLastErrorLen = 250

// AssetSyncer walks the chain height by height and keeps the explorer
// store converged with it. Every record of a height is written before
// the watermark advances; a crash in between re-processes the height on
// restart, and the idempotent writes make the second pass converge on
// the same rows.
type AssetSyncer struct {
	dao       db.ExplorerDao
	chain     rtm.ChainSource
	processor *indexer.Processor
	config    *config.Config

	stopCh   chan struct{}
	stopOnce sync.Once

	curHeight    uint64
	failedHeight uint64
	failures     int
}

func NewAssetSyncer(dao db.ExplorerDao, chain rtm.ChainSource, processor *indexer.Processor, cfg *config.Config) *AssetSyncer {
	return &AssetSyncer{
		dao:       dao,
		chain:     chain,
		processor: processor,
		config:    cfg,
		stopCh:    make(chan struct{}),
	}
}

// StartLoop drives the sync until Stop is called or one height
// exhausts its retry budget.
func (s *AssetSyncer) StartLoop() {
	for {
		select {
		case <-s.stopCh:
			logging.Logger.Infof("sync loop stopped")
			return
		default:
		}
		if err := s.process(); err != nil {
			logging.Logger.Errorf("failed to process block at height %d, err=%s", s.curHeight, err.Error())
			metrics.BlockRetryCounter.Inc()
			if s.noteFailure(err) {
				logging.Logger.Errorf("height %d failed %d times, halting sync loop", s.failedHeight, s.failures)
				return
			}
			s.sleepOrStop(s.config.SyncConfig.GetRetryBackoff(s.failures))
			continue
		}
		s.clearFailure()
	}
}

// Stop asks the loop to exit. It returns without waiting for it.
func (s *AssetSyncer) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *AssetSyncer) process() error {
	state, err := s.dao.GetSyncState(types.SyncStreamMain)
	if err != nil {
		return fmt.Errorf("failed to get sync state from db, err=%s", err.Error())
	}
	if state.Id == 0 {
		state.Name = types.SyncStreamMain
		state.Status = types.SyncStatusIdle
	}

	// A missing state row means nothing is synced yet; only a committed
	// watermark may push the cursor past the configured start.
	nextHeight := s.config.SyncConfig.StartHeight
	if state.Id != 0 && state.Height >= nextHeight {
		nextHeight = state.Height + 1
	}
	s.curHeight = nextHeight

	tip, err := s.chain.ChainHeight()
	if err != nil {
		return fmt.Errorf("failed to get chain height from node, err=%s", err.Error())
	}
	metrics.ChainTipGauge.Set(float64(tip))

	if nextHeight > tip {
		return s.waitAtTip(state, tip)
	}
	metrics.CaughtUpGauge.Set(0)

	block, err := s.chain.BlockByHeight(nextHeight)
	if err != nil {
		if err == rtm.ErrBlockNotFound {
			// The reported tip can briefly run ahead of what the node
			// serves during a reorg; wait instead of burning the retry
			// budget on it.
			logging.Logger.Infof("block at height %d not served yet, tip=%d", nextHeight, tip)
			s.sleepOrStop(s.config.SyncConfig.GetPollInterval())
			return nil
		}
		return fmt.Errorf("failed to get block at height %d, err=%s", nextHeight, err.Error())
	}
	if block.Hash == "" || block.Time == 0 {
		return fmt.Errorf("malformed block at height %d, empty hash or zero timestamp", nextHeight)
	}

	if err = s.dao.SaveBlock(&db.Block{
		Height:     block.Height,
		Hash:       block.Hash,
		ParentHash: block.PreviousBlockHash,
		BlockTime:  block.Time,
		TxCount:    len(block.Txs),
	}); err != nil {
		return fmt.Errorf("failed to save block at height %d, err=%s", nextHeight, err.Error())
	}

	before := s.processor.Counters()
	if err = s.processor.ProcessBlock(block); err != nil {
		return fmt.Errorf("failed to process block at height %d, err=%s", nextHeight, err.Error())
	}
	after := s.processor.Counters()

	// The watermark moves only after every record of the block is in.
	state.Height = nextHeight
	state.Status = types.SyncStatusAdvancing
	state.LastError = ""
	state.Blocks++
	state.Txs += after.Txs - before.Txs
	state.AssetTxs += assetEvents(after) - assetEvents(before)
	if err = s.dao.SaveSyncState(state); err != nil {
		return fmt.Errorf("failed to save sync state at height %d, err=%s", nextHeight, err.Error())
	}

	metrics.SyncedHeightGauge.Set(float64(nextHeight))
	metrics.IndexedTxCounter.Add(float64(after.Txs - before.Txs))
	metrics.IndexedAssetEventCounter.Add(float64(assetEvents(after) - assetEvents(before)))
	metrics.SkippedRecordCounter.Add(float64(skippedRecords(after) - skippedRecords(before)))
	logging.Logger.Infof("saved block at height %d to DB, txs=%d", nextHeight, len(block.Txs))
	return nil
}

func (s *AssetSyncer) waitAtTip(state *db.SyncState, tip uint64) error {
	if state.Id != 0 && state.Status != types.SyncStatusCaughtUp {
		state.Status = types.SyncStatusCaughtUp
		if err := s.dao.SaveSyncState(state); err != nil {
			return fmt.Errorf("failed to save sync state, err=%s", err.Error())
		}
	}
	metrics.CaughtUpGauge.Set(1)
	logging.Logger.Debugf("caught up with chain tip %d, waiting for new blocks", tip)
	s.sleepOrStop(s.config.SyncConfig.GetPollInterval())
	return nil
}

// noteFailure counts consecutive failures at the current height and
// reports whether its retry budget is spent. Exhaustion is recorded on
// the state row so operators can see why the loop went quiet.
func (s *AssetSyncer) noteFailure(cause error) bool {
	if s.failedHeight != s.curHeight {
		s.failedHeight = s.curHeight
		s.failures = 0
	}
	s.failures++
	if s.failures < s.config.SyncConfig.GetMaxBlockRetries() {
		return false
	}
	state, err := s.dao.GetSyncState(types.SyncStreamMain)
	if err != nil {
		logging.Logger.Errorf("failed to get sync state while halting, err=%s", err.Error())
		return true
	}
	if state.Id == 0 {
		state.Name = types.SyncStreamMain
	}
	state.Status = types.SyncStatusError
	state.LastError = truncateErrMsg(cause)
	if err = s.dao.SaveSyncState(state); err != nil {
		logging.Logger.Errorf("failed to save sync state while halting, err=%s", err.Error())
	}
	return true
}

func (s *AssetSyncer) clearFailure() {
	s.failedHeight = 0
	s.failures = 0
}

func (s *AssetSyncer) sleepOrStop(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-s.stopCh:
	case <-time.After(d):
	}
}

func truncateErrMsg(err error) string {
	msg := err.Error()
	if len(msg) > maxLastErrorLen {
		msg = msg[:maxLastErrorLen]
	}
	return msg
}

func assetEvents(c indexer.Counters) uint64 {
	return c.AssetsCreated + c.AssetsUpdated + c.Mints + c.Transfers
}

func skippedRecords(c indexer.Counters) uint64 {
	return c.SkippedUnknownType + c.SkippedMissingAsset + c.SkippedUpdates + c.RejectedRecords
}
