package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion outcome labels for the ingest counter.
const (
	resultOK             = "ok"
	resultDuplicate      = "duplicate"
	resultNoData         = "no_data"
	resultMissingColumns = "missing_columns"
	resultStoreError     = "store_error"
)

var (
	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bedpulse",
		Name:      "ingest_total",
		Help:      "Ingestion attempts by outcome.",
	}, []string{"result"})

	ingestedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bedpulse",
		Name:      "ingested_rows_total",
		Help:      "Rows imported across all successful ingestions.",
	})

	snapshotCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bedpulse",
		Name:      "snapshots",
		Help:      "Snapshots currently held in the housing history.",
	})
)
