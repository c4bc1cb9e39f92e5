package retry

import (
	"context"
	"time"

	"push-service/internal/logging"
	"push-service/internal/models"
)

// IntentStore is the retry-intent persistence the scheduler mutates.
type IntentStore interface {
	GetDueRetryIntents(ctx context.Context, now time.Time, limit int) ([]models.RetryIntent, error)
	MarkRetrySuccess(ctx context.Context, id string, attemptedAt time.Time) error
	MarkRetryFailure(ctx context.Context, id string, attemptCount, maxAttempts int, attemptedAt, nextRetryAt time.Time, lastError string) error
	MarkRetryAbandoned(ctx context.Context, id string, attemptedAt time.Time, lastError string) error
}

// Dispatcher re-attempts delivery for an intent's target user.
type Dispatcher interface {
	Dispatch(ctx context.Context, task models.DispatchTask) (models.DispatchResult, error)
}

// OpsNotifier surfaces permanent failures to operators. Implementations
// must be best-effort; the scheduler ignores their errors.
type OpsNotifier interface {
	PermanentFailure(ctx context.Context, intent models.RetryIntent)
}

// Summary is the JSON body returned from one scheduler run.
type Summary struct {
	Processed         int `json:"processed"`
	Successful        int `json:"successful"`
	Failed            int `json:"failed"`
	PermanentFailures int `json:"permanent_failures"`
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetrying
	outcomePermanent
)

const noSubscriptionsError = "no active subscriptions"

// Scheduler drains due retry intents in bounded batches. Each run is a
// stateless pass over persistent state; scheduling between runs is external.
type Scheduler struct {
	intents    IntentStore
	dispatcher Dispatcher
	ops        OpsNotifier
	batchSize  int
	logger     *logging.Logger
	now        func() time.Time
}

func NewScheduler(intents IntentStore, dispatcher Dispatcher, ops OpsNotifier, batchSize int, logger *logging.Logger) *Scheduler {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Scheduler{
		intents:    intents,
		dispatcher: dispatcher,
		ops:        ops,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

// Run processes one batch of due intents and returns the outcome counts.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	due, err := s.intents.GetDueRetryIntents(ctx, s.now(), s.batchSize)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, intent := range due {
		sum.Processed++
		switch s.process(ctx, intent) {
		case outcomeSuccess:
			sum.Successful++
		case outcomeRetrying:
			sum.Failed++
		case outcomePermanent:
			sum.Failed++
			sum.PermanentFailures++
		}
	}

	if sum.Processed > 0 {
		s.logger.Infof("Retry run: %d processed, %d successful, %d failed, %d permanent",
			sum.Processed, sum.Successful, sum.Failed, sum.PermanentFailures)
	}
	return sum, nil
}

// process retries one intent and records the outcome.
func (s *Scheduler) process(ctx context.Context, intent models.RetryIntent) outcome {
	attemptedAt := s.now()

	result, err := s.dispatcher.Dispatch(ctx, models.DispatchTask{
		RequestID: intent.ID,
		UserID:    intent.UserID,
		Title:     intent.Title,
		Body:      intent.Body,
		Data:      intent.Data,
		Type:      intent.Type,
		Timestamp: attemptedAt,
	})

	if err == nil && result.SentCount == 0 && !result.Failed() {
		// Every endpoint for this user is gone; retrying cannot help.
		if markErr := s.intents.MarkRetryAbandoned(ctx, intent.ID, attemptedAt, noSubscriptionsError); markErr != nil {
			s.logger.Errorf("Failed to abandon retry intent %s: %v", intent.ID, markErr)
		}
		intent.LastError = noSubscriptionsError
		s.notifyPermanent(ctx, intent)
		return outcomePermanent
	}

	if err == nil && !result.Failed() {
		if markErr := s.intents.MarkRetrySuccess(ctx, intent.ID, attemptedAt); markErr != nil {
			s.logger.Errorf("Failed to mark retry intent %s success: %v", intent.ID, markErr)
		}
		return outcomeSuccess
	}

	lastError := "partial delivery failure"
	if err != nil {
		lastError = err.Error()
	}

	attempts := intent.AttemptCount + 1
	nextRetryAt := attemptedAt.Add(Backoff(attempts))
	if markErr := s.intents.MarkRetryFailure(ctx, intent.ID, attempts, intent.MaxAttempts, attemptedAt, nextRetryAt, lastError); markErr != nil {
		s.logger.Errorf("Failed to mark retry intent %s failure: %v", intent.ID, markErr)
	}

	if attempts >= intent.MaxAttempts {
		intent.AttemptCount = attempts
		intent.LastError = lastError
		s.notifyPermanent(ctx, intent)
		return outcomePermanent
	}
	return outcomeRetrying
}

func (s *Scheduler) notifyPermanent(ctx context.Context, intent models.RetryIntent) {
	s.logger.Warnf("Retry intent %s permanently failed for user %d after %d attempts: %s",
		intent.ID, intent.UserID, intent.AttemptCount, intent.LastError)
	if s.ops != nil {
		s.ops.PermanentFailure(ctx, intent)
	}
}
