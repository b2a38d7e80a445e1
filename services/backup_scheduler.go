package services

import (
	"sync"
	"time"

	"patrimoine/utils"
)

// BackupScheduler writes an encrypted backup on a fixed interval and prunes
// the directory down to the configured number of files.
type BackupScheduler struct {
	backups  *BackupService
	interval time.Duration
	keep     int

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewBackupScheduler(backups *BackupService, interval time.Duration, keep int) *BackupScheduler {
	if keep < 1 {
		keep = 7
	}
	return &BackupScheduler{
		backups:  backups,
		interval: interval,
		keep:     keep,
		stop:     make(chan struct{}),
	}
}

// Start launches the backup loop. An interval of zero disables scheduling.
func (s *BackupScheduler) Start() {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ticker.C:
				if err := s.RunOnce(); err != nil {
					utils.LogError("scheduled backup failed: %v", err)
				}
			case <-s.stop:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight backup to finish. Safe to
// call more than once.
func (s *BackupScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// RunOnce writes one backup and applies the retention policy.
func (s *BackupScheduler) RunOnce() error {
	path, err := s.backups.Create()
	if err != nil {
		return err
	}
	utils.LogInfo("scheduled backup written: %s", path)
	return s.backups.Prune(s.keep)
}
