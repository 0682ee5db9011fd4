package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/clientdata"
)

// CacheCleanupJob prunes expired client-data cache rows.
type CacheCleanupJob struct {
	store *clientdata.Store
	log   zerolog.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(store *clientdata.Store, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		store: store,
		log:   log.With().Str("job", "cache_cleanup").Logger(),
	}
}

func (j *CacheCleanupJob) Name() string { return "cache_cleanup" }

func (j *CacheCleanupJob) Run() error {
	removed, err := j.store.PruneExpired()
	if err != nil {
		return err
	}
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Cache cleanup finished")
	}
	return nil
}

// BackupRunner is implemented by the reliability backup service.
type BackupRunner interface {
	RunBackup() error
}

// BackupJob triggers the nightly database backup.
type BackupJob struct {
	runner BackupRunner
	log    zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(runner BackupRunner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		runner: runner,
		log:    log.With().Str("job", "backup").Logger(),
	}
}

func (j *BackupJob) Name() string { return "backup" }

func (j *BackupJob) Run() error {
	return j.runner.RunBackup()
}
