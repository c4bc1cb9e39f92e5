package notifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"push-service/internal/config"
	"push-service/internal/logging"
	"push-service/internal/models"
	"push-service/internal/retry"
	"push-service/internal/ws"
)

// Dispatcher fans a notification out to a user's subscriptions.
type Dispatcher interface {
	Dispatch(ctx context.Context, task models.DispatchTask) (models.DispatchResult, error)
}

// IntentStore creates retry intents for failed dispatches.
type IntentStore interface {
	CreateRetryIntent(ctx context.Context, intent models.RetryIntent) (models.RetryIntent, error)
}

// Service queues dispatch tasks from event producers and processes them with
// a worker pool. Synchronous callers (the HTTP trigger) use Notify directly.
type Service struct {
	dispatcher Dispatcher
	intents    IntentStore
	hub        *ws.Hub
	logger     *logging.Logger
	config     config.Config
	tasks      chan models.DispatchTask
	ctx        context.Context
	cancel     context.CancelFunc
	wg         *sync.WaitGroup
}

// New constructs a notifier Service.
func New(dispatcher Dispatcher, intents IntentStore, hub *ws.Hub, logger *logging.Logger, cfg config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		dispatcher: dispatcher,
		intents:    intents,
		hub:        hub,
		logger:     logger,
		config:     cfg,
		tasks:      make(chan models.DispatchTask, cfg.Notifier.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Notifier.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers.
func (s *Service) Stop() {
	s.cancel()
}

// QueueTask enqueues a task for asynchronous processing.
func (s *Service) QueueTask(task models.DispatchTask) {
	if task.RequestID == "" {
		task.RequestID = uuid.New().String()
	}
	select {
	case s.tasks <- task:
		s.logger.Infof("Queued task: request_id=%s", task.RequestID)
	default:
		s.logger.Errorf("Queue full, dropping task: request_id=%s", task.RequestID)
	}
}

// worker processes tasks until the context is cancelled.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case task := <-s.tasks:
			if _, err := s.Notify(s.ctx, task); err != nil {
				s.logger.Errorf("Dispatch failed: request_id=%s: %v", task.RequestID, err)
			}
		}
	}
}

// Notify dispatches one notification and, when any subscription send failed,
// persists a retry intent so the scheduler picks the failure up later. The
// dispatcher stays policy-free; this is the only place first intents are
// created.
func (s *Service) Notify(ctx context.Context, task models.DispatchTask) (models.DispatchResult, error) {
	if task.Timestamp.IsZero() {
		task.Timestamp = time.Now()
	}

	result, err := s.dispatcher.Dispatch(ctx, task)
	if err != nil {
		return models.DispatchResult{}, err
	}

	if result.Failed() {
		intent := models.RetryIntent{
			UserID:      task.UserID,
			Title:       task.Title,
			Body:        task.Body,
			Data:        task.Data,
			Type:        task.Type,
			Status:      models.RetryStatusPending,
			MaxAttempts: models.DefaultMaxAttempts,
			NextRetryAt: task.Timestamp.Add(retry.Backoff(0)),
		}
		intent.LastError = "delivery failed for subscriptions " + strings.Join(result.FailedSubscriptionIDs, ", ")
		created, err := s.intents.CreateRetryIntent(ctx, intent)
		if err != nil {
			s.logger.Errorf("Failed to create retry intent for user %d: %v", task.UserID, err)
		} else {
			s.logger.Infof("Created retry intent %s for user %d (%d failed sends)",
				created.ID, task.UserID, len(result.FailedSubscriptionIDs))
		}
	}

	if s.hub != nil {
		s.hub.SendToUser(task.UserID, ws.StatusUpdate{
			Title:  task.Title,
			Type:   task.Type,
			Result: result,
		})
	}
	return result, nil
}
