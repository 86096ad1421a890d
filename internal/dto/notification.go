package dto

// NotificationQuery constrains notification log listings.
type NotificationQuery struct {
	EventType string `form:"event_type"`
	Cursor    string `form:"cursor"`
	Limit     int    `form:"limit"`
}
