package repository

import (
    "database/sql"
    "fmt"
    "time"

    appErrors "github.com/artloop/notify-backend/internal/errors"
    "github.com/artloop/notify-backend/internal/model"
)

type CampaignRepositoryInterface interface {
    Create(c *model.Campaign) error
    GetByID(id int) (*model.Campaign, error)
    List(offset, limit int, channel, status string, ownerID int) ([]*model.Campaign, int, error)
    ListStuckSending() ([]*model.Campaign, error)
    Finalize(campaignID, sentCount, failedCount int, status string, sentAt time.Time) error
}

type CampaignRepository struct {
    DB *sql.DB
}

const campaignColumns = `id, owner_id, title, channel, status, body, recipient_count, sent_count, failed_count, created_at, sent_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
    c.CreatedAt = time.Now()
    if c.Status == "" {
        c.Status = model.StatusSending
    }
    query := `
        INSERT INTO campaigns (owner_id, title, channel, status, body, recipient_count, sent_count, failed_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7)
        RETURNING id
    `
    return r.DB.QueryRow(query, c.OwnerID, c.Title, c.Channel, c.Status, c.Body, c.RecipientCount, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
    var c model.Campaign
    err := r.DB.QueryRow(query, id).Scan(
        &c.ID, &c.OwnerID, &c.Title, &c.Channel, &c.Status, &c.Body,
        &c.RecipientCount, &c.SentCount, &c.FailedCount, &c.CreatedAt, &c.SentAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    return &c, nil
}

func (r *CampaignRepository) List(offset, limit int, channel, status string, ownerID int) ([]*model.Campaign, int, error) {
    campaigns := []*model.Campaign{}
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
    args := []interface{}{}
    argPos := 1

    if channel != "" {
        query += fmt.Sprintf(" AND channel=$%d", argPos)
        args = append(args, channel)
        argPos++
    }
    if status != "" {
        query += fmt.Sprintf(" AND status=$%d", argPos)
        args = append(args, status)
        argPos++
    }
    if ownerID > 0 {
        query += fmt.Sprintf(" AND owner_id=$%d", argPos)
        args = append(args, ownerID)
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
    args = append(args, limit, offset)

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        c := &model.Campaign{}
        if err := rows.Scan(
            &c.ID, &c.OwnerID, &c.Title, &c.Channel, &c.Status, &c.Body,
            &c.RecipientCount, &c.SentCount, &c.FailedCount, &c.CreatedAt, &c.SentAt,
        ); err != nil {
            return nil, 0, err
        }
        campaigns = append(campaigns, c)
    }

    countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
    countArgs := []interface{}{}
    countPos := 1
    if channel != "" {
        countQuery += fmt.Sprintf(" AND channel=$%d", countPos)
        countArgs = append(countArgs, channel)
        countPos++
    }
    if status != "" {
        countQuery += fmt.Sprintf(" AND status=$%d", countPos)
        countArgs = append(countArgs, status)
        countPos++
    }
    if ownerID > 0 {
        countQuery += fmt.Sprintf(" AND owner_id=$%d", countPos)
        countArgs = append(countArgs, ownerID)
    }

    var total int
    if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return campaigns, total, nil
}

// ListStuckSending returns campaigns that never reached a terminal status,
// typically after a crash mid-run. The reconciler repairs them on startup.
func (r *CampaignRepository) ListStuckSending() ([]*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status=$1 ORDER BY id`
    rows, err := r.DB.Query(query, model.StatusSending)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c := &model.Campaign{}
        if err := rows.Scan(
            &c.ID, &c.OwnerID, &c.Title, &c.Channel, &c.Status, &c.Body,
            &c.RecipientCount, &c.SentCount, &c.FailedCount, &c.CreatedAt, &c.SentAt,
        ); err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

// Finalize performs the single terminal write for a campaign.
func (r *CampaignRepository) Finalize(campaignID, sentCount, failedCount int, status string, sentAt time.Time) error {
    query := `UPDATE campaigns SET sent_count=$1, failed_count=$2, status=$3, sent_at=$4 WHERE id=$5`
    _, err := r.DB.Exec(query, sentCount, failedCount, status, sentAt, campaignID)
    return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
