// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics defines the Prometheus instrumentation exposed by the
// optional --metrics-addr endpoint: counters and gauges for the two
// worker pools, the one thing worth graphing here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesClassified counts URL probe outcomes by class
	// (fine|redirect|error|exception).
	ProbesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salted_probes_classified_total",
		Help: "Number of URL probes classified, by outcome class.",
	}, []string{"class"})

	// ProbesInFlight is the current number of in-flight URL probe
	// requests across all URL-pool workers.
	ProbesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "salted_probe_inflight",
		Help: "Number of URL probe HTTP requests currently in flight.",
	})

	// DOIProbes counts DOI probe outcomes by outcome (valid|invalid|other).
	DOIProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salted_doi_probes_total",
		Help: "Number of DOI probes completed, by outcome.",
	}, []string{"outcome"})
)
