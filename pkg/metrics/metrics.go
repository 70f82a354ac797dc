package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NonceLockTimeouts counts allocations that exhausted the lease retry
	// budget.
	NonceLockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_nonce_lock_timeouts_total",
		Help: "Nonce lease acquisitions that timed out after bounded retries",
	})

	// NonceReleaseFailures counts failures to release a nonce after a
	// known-failed submission. A leaked pending nonce blocks every future
	// withdrawal for the wallet, so this counter is alert-worthy at any
	// non-zero rate.
	NonceReleaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_nonce_release_failures_total",
		Help: "Failed nonce releases following a failed submission",
	})

	// Submissions counts broadcast attempts by outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_tx_submissions_total",
		Help: "Transaction submissions by outcome",
	}, []string{"outcome"})

	// ExpiredLocksCleared counts leases swept by the cleanup job.
	ExpiredLocksCleared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_nonce_expired_locks_cleared_total",
		Help: "Expired nonce leases cleared by the cleanup job",
	})
)
