package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_retry_attempts_total",
		Help: "Failed attempts that were retried after backoff.",
	})
	batchPauses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_batch_pauses_total",
		Help: "Long pauses taken at batch boundaries.",
	})
)
