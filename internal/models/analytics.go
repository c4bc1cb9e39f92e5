package models

// TypeCount is a per-category volume entry.
type TypeCount struct {
	Type  NotificationType `json:"type"`
	Count int              `json:"count"`
}

// DailyCount is one day of the delivery time series.
type DailyCount struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Sent      int    `json:"sent"`
	Delivered int    `json:"delivered"`
	Clicked   int    `json:"clicked"`
}

// AnalyticsSnapshot is a derived view over the delivery log. DeliveryRate is
// a percentage of sent; ClickRate is a percentage of delivered.
type AnalyticsSnapshot struct {
	TotalSent      int            `json:"total_sent"`
	TotalDelivered int            `json:"total_delivered"`
	TotalClicked   int            `json:"total_clicked"`
	TotalFailed    int            `json:"total_failed"`
	DeliveryRate   float64        `json:"delivery_rate"`
	ClickRate      float64        `json:"click_rate"`
	TopTypes       []TypeCount    `json:"top_types"`
	ByStatus       map[string]int `json:"by_status"`
	Daily          []DailyCount   `json:"daily"`
}
