package models

// NotificationType is the closed set of notification categories. Free-form
// strings from producers are normalized through ParseNotificationType so
// aggregation stays exhaustive.
type NotificationType string

const (
	TypeSubmissionApproved NotificationType = "submission_approved"
	TypeSubmissionRejected NotificationType = "submission_rejected"
	TypeCampaignInvite     NotificationType = "campaign_invite"
	TypePayoutSent         NotificationType = "payout_sent"
	TypeSystem             NotificationType = "system"
	TypeOther              NotificationType = "other"
)

// NotificationTypes lists every known category.
var NotificationTypes = []NotificationType{
	TypeSubmissionApproved,
	TypeSubmissionRejected,
	TypeCampaignInvite,
	TypePayoutSent,
	TypeSystem,
	TypeOther,
}

// ParseNotificationType maps a raw string to a known type, falling back to
// TypeOther for anything unrecognized.
func ParseNotificationType(s string) NotificationType {
	switch NotificationType(s) {
	case TypeSubmissionApproved, TypeSubmissionRejected, TypeCampaignInvite, TypePayoutSent, TypeSystem:
		return NotificationType(s)
	default:
		return TypeOther
	}
}
