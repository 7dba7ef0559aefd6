// internal/controller/campaign_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"
    "github.com/rs/zerolog"

    appErrors "github.com/artloop/notify-backend/internal/errors"
    "github.com/artloop/notify-backend/internal/render"
    "github.com/artloop/notify-backend/internal/repository"
    "github.com/artloop/notify-backend/internal/service"
)

type CampaignController struct {
    Dispatch     *service.DispatchService
    CampaignRepo repository.CampaignRepositoryInterface
    OutcomeRepo  repository.OutcomeRepositoryInterface
    Logger       zerolog.Logger
}

// CreateAndSendCampaign creates a campaign and dispatches it in one request.
func (c *CampaignController) CreateAndSendCampaign(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Title      string   `json:"title"`
        Body       string   `json:"body"`
        Channel    string   `json:"channel"`
        Recipients []string `json:"recipients"`
        Names      []string `json:"names"`
        Values     []string `json:"values"`
        OwnerID    int      `json:"owner_id"`
        From       string   `json:"from"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    result, err := c.Dispatch.CreateAndSendCampaign(r.Context(), service.CampaignParams{
        Title:      body.Title,
        Body:       body.Body,
        Channel:    body.Channel,
        Recipients: body.Recipients,
        Names:      body.Names,
        Values:     body.Values,
        OwnerID:    body.OwnerID,
        From:       body.From,
    })
    if err != nil {
        c.Logger.Error().Err(err).Str("title", body.Title).Msg("campaign dispatch failed")
        status := http.StatusInternalServerError
        var initErr *appErrors.ErrGatewayInit
        switch {
        case errors.Is(err, appErrors.ErrNoValidRecipients):
            status = http.StatusUnprocessableEntity
        case errors.As(err, &initErr):
            status = http.StatusBadGateway
        }
        writeJSON(w, status, map[string]interface{}{
            "success": false,
            "error":   err.Error(),
        })
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{
        "success":      result.SentCount > 0,
        "campaign_id":  result.CampaignID,
        "status":       result.Status,
        "sent_count":   result.SentCount,
        "failed_count": result.FailedCount,
        "error":        result.Error,
    })
}

// ListCampaigns returns a paginated campaign list for reporting views.
func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
    channel := r.URL.Query().Get("channel")
    status := r.URL.Query().Get("status")
    ownerID, _ := strconv.Atoi(r.URL.Query().Get("owner_id"))

    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    offset := (page - 1) * pageSize

    campaigns, total, err := c.CampaignRepo.List(offset, pageSize, channel, status, ownerID)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    totalPages := (total + pageSize - 1) / pageSize
    writeJSON(w, http.StatusOK, map[string]interface{}{
        "data": campaigns,
        "pagination": map[string]int{
            "page":        page,
            "page_size":   pageSize,
            "total_count": total,
            "total_pages": totalPages,
        },
    })
}

// GetCampaign returns one campaign with its outcome stats.
func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid campaign id", http.StatusBadRequest)
        return
    }

    campaign, err := c.CampaignRepo.GetByID(id)
    if err != nil {
        var notFound *appErrors.ErrCampaignNotFound
        if errors.As(err, &notFound) {
            http.Error(w, err.Error(), http.StatusNotFound)
            return
        }
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    attempted, sent, failed, err := c.OutcomeRepo.CountByCampaign(id)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{
        "campaign": campaign,
        "stats": map[string]int{
            "attempted": attempted,
            "sent":      sent,
            "failed":    failed,
            "remaining": campaign.RecipientCount - attempted,
        },
    })
}

// ListOutcomes returns the per-recipient rows, also readable while the
// campaign is still sending.
func (c *CampaignController) ListOutcomes(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid campaign id", http.StatusBadRequest)
        return
    }

    outcomes, err := c.OutcomeRepo.ListByCampaign(id)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{
        "data": outcomes,
    })
}

// Preview renders a personalized message without sending anything.
func (c *CampaignController) Preview(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Body  string `json:"body"`
        Name  string `json:"name"`
        Value string `json:"value"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{
        "rendered_message": render.Render(body.Body, render.Vars{Name: body.Name, Value: body.Value}),
    })
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(payload)
}
