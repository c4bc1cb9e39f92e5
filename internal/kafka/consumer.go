package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"push-service/internal/config"
	"push-service/internal/logging"
	"push-service/internal/models"
	"push-service/internal/notifier"
)

// event is the application message shape produced on submission approvals,
// rejections, invites, and payouts.
type event struct {
	Event  string            `json:"event"`
	UserID int               `json:"user_id"`
	Title  string            `json:"title,omitempty"`
	Body   string            `json:"body,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
}

// Consumer reads application events and queues dispatch tasks for them.
type Consumer struct {
	reader *kafka.Reader
	svc    *notifier.Service
	logger *logging.Logger
	cancel context.CancelFunc
}

func NewConsumer(cfg config.Config, svc *notifier.Service, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: reader, svc: svc, logger: logger}
}

// Start consumes messages until Close is called. Malformed messages are
// logged and skipped, never fatal.
func (c *Consumer) Start(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			var ev event
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				c.logger.Errorf("Unmarshal message failed: %v", err)
				continue
			}
			if ev.Event == "" || ev.UserID < 1 {
				c.logger.Errorf("Invalid message: missing event or user_id")
				continue
			}

			task := taskForEvent(ev)
			c.svc.QueueTask(task)
			c.logger.Infof("Queued %s event for user %d", ev.Event, ev.UserID)
		}
	}()
}

func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}

// taskForEvent maps an application event onto a dispatch task, filling in
// default copy when the producer sent none.
func taskForEvent(ev event) models.DispatchTask {
	// Producers name events "submission.approved"; types use underscores.
	task := models.DispatchTask{
		UserID: ev.UserID,
		Title:  ev.Title,
		Body:   ev.Body,
		Data:   ev.Data,
		Type:   models.ParseNotificationType(strings.ReplaceAll(ev.Event, ".", "_")),
	}

	if task.Title == "" {
		switch task.Type {
		case models.TypeSubmissionApproved:
			task.Title = "Submission approved"
			task.Body = "Your campaign submission was approved."
		case models.TypeSubmissionRejected:
			task.Title = "Submission rejected"
			task.Body = "Your campaign submission was rejected."
		case models.TypeCampaignInvite:
			task.Title = "New campaign invite"
			task.Body = "You have been invited to a campaign."
		case models.TypePayoutSent:
			task.Title = "Payout sent"
			task.Body = "Your payout is on its way."
		default:
			task.Title = "Notification"
		}
	}
	return task
}
