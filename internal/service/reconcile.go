// internal/service/reconcile.go
package service

import (
    "time"

    "github.com/rs/zerolog"

    "github.com/artloop/notify-backend/internal/model"
    "github.com/artloop/notify-backend/internal/repository"
)

// Reconciler recomputes campaign status from persisted outcome rows. A crash
// mid-run leaves a campaign in `sending` with a partial outcome set; running
// the reconciler on startup, and after each queued job, finalizes campaigns
// whose recipients have all been attempted.
type Reconciler struct {
    CampaignRepo repository.CampaignRepositoryInterface
    OutcomeRepo  repository.OutcomeRepositoryInterface
    Logger       zerolog.Logger
}

// ReconcileCampaign finalizes the campaign when every valid recipient has an
// outcome row. Campaigns still in flight are left alone.
func (r *Reconciler) ReconcileCampaign(campaignID int) error {
    campaign, err := r.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return err
    }
    if campaign.Terminal() {
        return nil
    }

    attempted, sent, failed, err := r.OutcomeRepo.CountByCampaign(campaignID)
    if err != nil {
        return err
    }
    if attempted < campaign.RecipientCount {
        return nil
    }

    status := terminalStatus(sent)
    if err := r.CampaignRepo.Finalize(campaignID, sent, failed, status, time.Now()); err != nil {
        return err
    }

    r.Logger.Info().Int("campaign_id", campaignID).Str("status", status).
        Int("sent", sent).Int("failed", failed).Msg("campaign finalized")
    return nil
}

// ReconcileAll sweeps every campaign stuck in `sending`.
func (r *Reconciler) ReconcileAll() error {
    stuck, err := r.CampaignRepo.ListStuckSending()
    if err != nil {
        return err
    }
    for _, c := range stuck {
        if c.Status != model.StatusSending {
            continue
        }
        if err := r.ReconcileCampaign(c.ID); err != nil {
            r.Logger.Error().Err(err).Int("campaign_id", c.ID).Msg("reconcile failed")
        }
    }
    return nil
}
