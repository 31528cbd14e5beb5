package syncer

import (
	"time"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/metrics"
)

const MonitorTipInterval = 1 * time.Minute

// MonitorChainTip polls the node's best height on a ticker so the tip
// gauge stays live while the sync loop is sleeping or halted. Runs
// until Stop.
func (s *AssetSyncer) MonitorChainTip() {
	monitorTicker := time.NewTicker(MonitorTipInterval)
	defer monitorTicker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-monitorTicker.C:
		}
		tip, err := s.chain.ChainHeight()
		if err != nil {
			logging.Logger.Errorf("failed to get chain height from node, err=%s", err.Error())
			continue
		}
		metrics.ChainTipGauge.Set(float64(tip))
	}
}
