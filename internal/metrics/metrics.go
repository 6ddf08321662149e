package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btcmap_sync_runs_total",
		Help: "Reconciliation cycles by outcome.",
	}, []string{"result"})

	ElementsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcmap_elements_created_total",
		Help: "Elements created by reconciliation.",
	})

	ElementsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcmap_elements_updated_total",
		Help: "Elements updated by reconciliation.",
	})

	ElementsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcmap_elements_deleted_total",
		Help: "Elements soft-deleted by reconciliation.",
	})

	ReportsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcmap_reports_written_total",
		Help: "Report rows written by the aggregator.",
	})

	LastSyncUnixtime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "btcmap_last_sync_timestamp_seconds",
		Help: "Unix time of the last successful reconciliation cycle.",
	})
)
