package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"habitLoopAPI/internal/types/notification"
)

const (
	dispatchWorkers   = 5
	dispatchQueueSize = 100
	pushTimeout       = 10 * time.Second
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, push *notification.Push) error
}

// PushJob is one push fanned out to a set of devices.
type PushJob struct {
	Tokens []notification.DeviceToken
	Push   *notification.Push
}

// NotificationDispatcher sends push jobs on a fixed pool of workers.
type NotificationDispatcher struct {
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *PushJob
	wg           sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewNotificationDispatcher starts the workers. A nil provider makes every
// job a logged no-op.
func NewNotificationDispatcher(provider PushNotificationProvider) *NotificationDispatcher {
	d := &NotificationDispatcher{
		pushProvider: provider,
		workers:      dispatchWorkers,
		jobQueue:     make(chan *PushJob, dispatchQueueSize),
	}
	d.startWorkers()
	return d
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobQueue {
		d.processJob(job)
	}
}

func (d *NotificationDispatcher) processJob(job *PushJob) {
	if d.pushProvider == nil {
		slog.Debug("skipping push: no provider configured", "type", job.Push.Type, "devices", len(job.Tokens))
		pushNotificationsTotal.WithLabelValues("skipped").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := d.pushProvider.SendPush(ctx, job.Tokens, job.Push); err != nil {
		slog.Warn("push failed", "type", job.Push.Type, "devices", len(job.Tokens), "error", err)
		pushNotificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	pushNotificationsTotal.WithLabelValues("sent").Inc()
}

// Dispatch queues job without blocking. It reports false when the job was
// dropped because the queue is full or the dispatcher has stopped.
func (d *NotificationDispatcher) Dispatch(job *PushJob) bool {
	if len(job.Tokens) == 0 {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return false
	}

	select {
	case d.jobQueue <- job:
		return true
	default:
		slog.Warn("dropping push: queue full", "type", job.Push.Type)
		pushNotificationsTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// Stop stops accepting jobs, lets the workers drain the queue, and waits
// for them.
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobQueue)
	d.mu.Unlock()

	slog.Info("stopping notification dispatcher")
	d.wg.Wait()
	slog.Info("notification dispatcher stopped")
}
