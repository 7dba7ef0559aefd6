package repository

import (
    "database/sql"
    "time"

    "github.com/artloop/notify-backend/internal/model"
)

// OutcomeRepositoryInterface is the append-only store for per-recipient
// results. Rows become visible to readers as soon as they are written, so a
// dashboard can follow a campaign while it is still sending.
type OutcomeRepositoryInterface interface {
    Record(o *model.RecipientOutcome) error
    ListByCampaign(campaignID int) ([]model.RecipientOutcome, error)
    CountByCampaign(campaignID int) (attempted, sent, failed int, err error)
    FirstError(campaignID int) (string, error)
}

type OutcomeRepository struct {
    DB *sql.DB
}

// Record inserts one outcome row. Idempotency is the caller's business: the
// dispatcher guarantees at most one call per recipient per run.
func (r *OutcomeRepository) Record(o *model.RecipientOutcome) error {
    if o.AttemptedAt.IsZero() {
        o.AttemptedAt = time.Now()
    }
    query := `
        INSERT INTO recipient_outcomes (campaign_id, address, success, provider_message_id, last_error, attempted_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
    return r.DB.QueryRow(
        query,
        o.CampaignID, o.Address, o.Success, o.ProviderMessageID, o.Error, o.AttemptedAt,
    ).Scan(&o.ID)
}

func (r *OutcomeRepository) ListByCampaign(campaignID int) ([]model.RecipientOutcome, error) {
    query := `
        SELECT id, campaign_id, address, success, provider_message_id, last_error, attempted_at
        FROM recipient_outcomes
        WHERE campaign_id=$1
        ORDER BY id
    `
    rows, err := r.DB.Query(query, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    outcomes := []model.RecipientOutcome{}
    for rows.Next() {
        var o model.RecipientOutcome
        if err := rows.Scan(&o.ID, &o.CampaignID, &o.Address, &o.Success, &o.ProviderMessageID, &o.Error, &o.AttemptedAt); err != nil {
            return nil, err
        }
        outcomes = append(outcomes, o)
    }
    return outcomes, rows.Err()
}

func (r *OutcomeRepository) CountByCampaign(campaignID int) (attempted, sent, failed int, err error) {
    query := `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE success), COUNT(*) FILTER (WHERE NOT success)
        FROM recipient_outcomes
        WHERE campaign_id=$1
    `
    err = r.DB.QueryRow(query, campaignID).Scan(&attempted, &sent, &failed)
    return attempted, sent, failed, err
}

// FirstError returns the earliest recorded per-recipient error, used as the
// representative cause when a whole run fails.
func (r *OutcomeRepository) FirstError(campaignID int) (string, error) {
    query := `
        SELECT last_error FROM recipient_outcomes
        WHERE campaign_id=$1 AND NOT success
        ORDER BY id
        LIMIT 1
    `
    var msg string
    err := r.DB.QueryRow(query, campaignID).Scan(&msg)
    if err == sql.ErrNoRows {
        return "", nil
    }
    return msg, err
}

var _ OutcomeRepositoryInterface = (*OutcomeRepository)(nil)
