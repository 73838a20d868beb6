package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// FollowerSyncer is the follower sync operation run on schedule
type FollowerSyncer interface {
	SyncAll(ctx context.Context) (*domain.SyncResult, error)
}

// SyncScheduler runs follower sync on a cron schedule
type SyncScheduler struct {
	syncer FollowerSyncer
	spec   string
	cron   *cron.Cron
	log    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewSyncScheduler creates a scheduler for a standard 5-field cron expression
// or a descriptor such as "@every 6h"
func NewSyncScheduler(syncer FollowerSyncer, spec string) (*SyncScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	log := logrus.WithField("component", "scheduler")
	logger := cron.VerbosePrintfLogger(log)
	return &SyncScheduler{
		syncer: syncer,
		spec:   spec,
		cron:   cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		log:    log,
	}, nil
}

// Start starts the scheduler
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("failed to schedule follower sync: %w", err)
	}
	s.cron.Start()

	s.log.WithField("spec", s.spec).Info("follower sync scheduled")
	return nil
}

// Stop cancels a running sync and waits for it to return
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *SyncScheduler) runOnce() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.log.Info("scheduled follower sync starting")
	result, err := s.syncer.SyncAll(ctx)
	if err != nil {
		s.log.WithError(err).Error("scheduled follower sync failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"synced": result.Synced,
		"failed": result.Failed,
	}).Info("scheduled follower sync finished")
}
