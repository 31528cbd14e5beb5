package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
)

var (
	SyncedHeightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "synced_block_height",
		Help: "Highest block height fully written to the database.",
	})

	ChainTipGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chain_tip_height",
		Help: "Best block height reported by the node.",
	})

	CaughtUpGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_caught_up",
		Help: "1 when the syncer has reached the chain tip, 0 otherwise.",
	})

	IndexedTxCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "indexed_transactions_total",
		Help: "Transactions written to the database.",
	})

	IndexedAssetEventCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "indexed_asset_events_total",
		Help: "Asset creations, mints, updates and transfers written to the database.",
	})

	SkippedRecordCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skipped_asset_records_total",
		Help: "Asset records skipped because of missing or malformed chain data.",
	})

	BlockRetryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "block_retries_total",
		Help: "Block fetch or store attempts that had to be retried.",
	})

	MetricsItems = []prometheus.Collector{
		SyncedHeightGauge,
		ChainTipGauge,
		CaughtUpGauge,
		IndexedTxCounter,
		IndexedAssetEventCounter,
		SkippedRecordCounter,
		BlockRetryCounter,
	}
)

const DefaultMetricsAddress = "0.0.0.0:9090"

type Metrics struct {
	httpAddress string
	registry    *prometheus.Registry
	httpServer  *http.Server
}

func NewMetrics(address string) *Metrics {
	return &Metrics{
		httpAddress: address,
		registry:    prometheus.NewRegistry(),
	}
}

func (m *Metrics) Start() {
	m.registry.MustRegister(MetricsItems...)
	go m.serve()
}

func (m *Metrics) serve() {
	router := mux.NewRouter()
	router.Path("/metrics").Handler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.httpServer = &http.Server{
		Addr:    m.httpAddress,
		Handler: router,
	}
	if err := m.httpServer.ListenAndServe(); err != nil {
		logging.Logger.Errorf("metrics server stopped serving, err=%s", err.Error())
		panic(err)
	}
}
