// internal/model/campaign.go
package model

import "time"

const (
    ChannelSMS   = "sms"
    ChannelEmail = "email"
)

const (
    StatusDraft   = "draft"
    StatusSending = "sending"
    StatusSent    = "sent"
    StatusFailed  = "failed"
)

type Campaign struct {
    ID             int        `db:"id" json:"id"`
    OwnerID        int        `db:"owner_id" json:"owner_id"`
    Title          string     `db:"title" json:"title"`
    Channel        string     `db:"channel" json:"channel"`
    Status         string     `db:"status" json:"status"`
    Body           string     `db:"body" json:"body"`
    RecipientCount int        `db:"recipient_count" json:"recipient_count"`
    SentCount      int        `db:"sent_count" json:"sent_count"`
    FailedCount    int        `db:"failed_count" json:"failed_count"`
    CreatedAt      time.Time  `db:"created_at" json:"created_at"`
    SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// Terminal reports whether the campaign reached a final status.
func (c *Campaign) Terminal() bool {
    return c.Status == StatusSent || c.Status == StatusFailed
}
