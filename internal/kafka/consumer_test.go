package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"push-service/internal/models"
)

func TestTaskForEventMapsTypes(t *testing.T) {
	task := taskForEvent(event{Event: "submission.approved", UserID: 12})
	assert.Equal(t, models.TypeSubmissionApproved, task.Type)
	assert.Equal(t, 12, task.UserID)
	assert.Equal(t, "Submission approved", task.Title)
	assert.NotEmpty(t, task.Body)

	task = taskForEvent(event{Event: "payout.sent", UserID: 3})
	assert.Equal(t, models.TypePayoutSent, task.Type)
	assert.Equal(t, "Payout sent", task.Title)
}

func TestTaskForEventKeepsProducerCopy(t *testing.T) {
	task := taskForEvent(event{
		Event:  "campaign.invite",
		UserID: 5,
		Title:  "Join the summer campaign",
		Body:   "Brand X invited you.",
		Data:   map[string]string{"campaign_id": "c-1"},
	})
	assert.Equal(t, models.TypeCampaignInvite, task.Type)
	assert.Equal(t, "Join the summer campaign", task.Title)
	assert.Equal(t, "Brand X invited you.", task.Body)
	assert.Equal(t, "c-1", task.Data["campaign_id"])
}

func TestTaskForEventUnknownEvent(t *testing.T) {
	task := taskForEvent(event{Event: "something.new", UserID: 9})
	assert.Equal(t, models.TypeOther, task.Type)
	assert.Equal(t, "Notification", task.Title)
}
