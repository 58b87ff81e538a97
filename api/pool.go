package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"eproba-editor/domain"
)

type submissionJob struct {
	userID string
	sub    domain.Submission
}

// SenderOptions sizes the submission worker pool.
type SenderOptions struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

// SubmissionSender hands submissions to the store from a pool of workers so
// the submit request does not wait on the queue. When the buffer stays full
// past the hand-off timeout the submission is sent inline.
type SubmissionSender struct {
	store   Storage
	deduper Deduper
	logger  *log.Logger

	timeout        time.Duration
	handoffTimeout time.Duration

	mu     sync.RWMutex
	jobs   chan submissionJob
	closed bool
	wg     sync.WaitGroup
}

// NewSubmissionSender starts opts.Workers workers.
func NewSubmissionSender(store Storage, deduper Deduper, logger *log.Logger, opts SenderOptions) *SubmissionSender {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if opts.Workers < 0 {
		opts.Workers = 0
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	s := &SubmissionSender{
		store:          store,
		deduper:        deduper,
		logger:         logger,
		timeout:        opts.Timeout,
		handoffTimeout: opts.HandoffTimeout,
		jobs:           make(chan submissionJob, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	logger.Infof("submission sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v", opts.Workers, opts.Buffer, opts.Timeout, opts.HandoffTimeout)
	return s
}

// Send queues sub for delivery. It returns an error only when the inline
// fallback fails, in which case the idempotency key has been released.
func (s *SubmissionSender) Send(ctx context.Context, userID string, sub domain.Submission) error {
	job := submissionJob{userID: userID, sub: sub}
	if s.tryEnqueue(job) {
		return nil
	}

	s.logger.WithField("user", userID).Warn("submission buffer saturated; sending inline")
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.store.EnqueueSubmission(sendCtx, userID, sub); err != nil {
		s.rollback(userID, sub.IdempotencyKey)
		return err
	}
	return nil
}

// Close stops accepting jobs and waits for the workers to drain the buffer.
func (s *SubmissionSender) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *SubmissionSender) worker(id int) {
	defer s.wg.Done()
	for j := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.store.EnqueueSubmission(ctx, j.userID, j.sub)
		cancel()

		if err != nil {
			s.rollback(j.userID, j.sub.IdempotencyKey)
			s.logger.Errorf("submission enqueue failed, err: %v, user: %s, draft: %s, worker: %d", err, j.userID, j.sub.DraftID, id)
		}
	}
}

func (s *SubmissionSender) rollback(userID, key string) {
	if s.deduper == nil || key == "" {
		return
	}
	if err := s.deduper.Remove(context.Background(), userID, key); err != nil {
		s.logger.Errorf("dedupe rollback failed, err: %v, key: %s, user: %s", err, key, userID)
	}
}

func (s *SubmissionSender) tryEnqueue(job submissionJob) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.jobs <- job:
		return true
	default:
	}

	if s.handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(s.handoffTimeout)
	defer timer.Stop()

	select {
	case s.jobs <- job:
		return true
	case <-timer.C:
		return false
	}
}
