package events

import "time"

// NotificationKind classifies a user-facing toast
type NotificationKind string

const (
	NotificationOutbid      NotificationKind = "outbid"
	NotificationLive        NotificationKind = "live"
	NotificationSold        NotificationKind = "sold"
	NotificationReset       NotificationKind = "reset"
	NotificationBidRejected NotificationKind = "bid_rejected"
)

// Notification is something the UI should surface once
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}
