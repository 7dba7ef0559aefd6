// internal/model/outcome.go
package model

import "time"

// RecipientOutcome records the result of exactly one gateway call. Rows are
// written as each attempt returns, so readers can watch a running campaign.
type RecipientOutcome struct {
    ID                int       `db:"id" json:"id"`
    CampaignID        int       `db:"campaign_id" json:"campaign_id"`
    Address           string    `db:"address" json:"address"`
    Success           bool      `db:"success" json:"success"`
    ProviderMessageID string    `db:"provider_message_id" json:"provider_message_id,omitempty"`
    Error             string    `db:"last_error" json:"error,omitempty"`
    AttemptedAt       time.Time `db:"attempted_at" json:"attempted_at"`
}
