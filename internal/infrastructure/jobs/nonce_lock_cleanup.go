package jobs

import (
	"context"
	"log"
	"time"
)

// LockCleaner clears expired nonce leases and reports how many were cleared
type LockCleaner interface {
	CleanupExpiredLocks(ctx context.Context) (int64, error)
}

// NonceLockCleanupJob periodically sweeps nonce leases whose holders died
// without releasing. Only needed for lock backends without server-side TTL
// expiry; a stale lease otherwise blocks withdrawals for its wallet until
// someone else's acquire races past the expiry check.
type NonceLockCleanupJob struct {
	cleaner  LockCleaner
	interval time.Duration
	stop     chan struct{}
}

func NewNonceLockCleanupJob(cleaner LockCleaner, interval time.Duration) *NonceLockCleanupJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NonceLockCleanupJob{
		cleaner:  cleaner,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *NonceLockCleanupJob) Start(ctx context.Context) {
	log.Println("🕐 Starting nonce lock cleanup job...")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Nonce lock cleanup job stopped (context cancelled)")
			return
		case <-j.stop:
			log.Println("⏹️ Nonce lock cleanup job stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *NonceLockCleanupJob) Stop() {
	close(j.stop)
}

func (j *NonceLockCleanupJob) sweep(ctx context.Context) {
	cleared, err := j.cleaner.CleanupExpiredLocks(ctx)
	if err != nil {
		log.Printf("❌ Error clearing expired nonce locks: %v", err)
		return
	}
	if cleared > 0 {
		log.Printf("✅ Cleared %d expired nonce locks", cleared)
	}
}
