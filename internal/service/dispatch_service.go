// internal/service/dispatch_service.go
package service

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/rs/zerolog"

    "github.com/artloop/notify-backend/internal/address"
    "github.com/artloop/notify-backend/internal/config"
    appErrors "github.com/artloop/notify-backend/internal/errors"
    "github.com/artloop/notify-backend/internal/gateway"
    "github.com/artloop/notify-backend/internal/model"
    "github.com/artloop/notify-backend/internal/queue"
    "github.com/artloop/notify-backend/internal/render"
    "github.com/artloop/notify-backend/internal/repository"
)

// QueueTopic carries one durable job per recipient in queue mode.
const QueueTopic = "campaign_sends"

const defaultSendTimeout = 15 * time.Second

// GatewayFactory builds the backend for one dispatch run. Injected so backend
// choice is an explicit parameter instead of ambient global state.
type GatewayFactory func(c *model.Campaign, sender string) (gateway.Gateway, error)

type DispatchService struct {
    CampaignRepo repository.CampaignRepositoryInterface
    OutcomeRepo  repository.OutcomeRepositoryInterface
    Queue        queue.Queue
    NewGateway   GatewayFactory
    Mode         string
    SendTimeout  time.Duration
    Logger       zerolog.Logger

    mu       sync.Mutex
    gateways map[int]gateway.Gateway
}

// CampaignParams is the channel-agnostic campaign creation request. Names
// and Values are indexed against Recipients; missing entries mean no
// personalization for that recipient.
type CampaignParams struct {
    Title      string
    Body       string
    Channel    string
    Recipients []string
    Names      []string
    Values     []string
    OwnerID    int
    From       string
}

// SendResult is the aggregate the caller gets back. Outcomes carries the
// per-recipient rows in recipient-list order for sync dispatches.
type SendResult struct {
    CampaignID  int                      `json:"campaign_id"`
    Status      string                   `json:"status"`
    SentCount   int                      `json:"sent_count"`
    FailedCount int                      `json:"failed_count"`
    Outcomes    []model.RecipientOutcome `json:"outcomes,omitempty"`
    Error       string                   `json:"error,omitempty"`
}

// CreateAndSendCampaign validates the request, creates the campaign in
// `sending`, attempts every valid recipient and finalizes the terminal
// status. In queue mode the attempts are published as durable jobs instead
// and the campaign stays `sending` until the worker drains them.
func (s *DispatchService) CreateAndSendCampaign(ctx context.Context, p CampaignParams) (*SendResult, error) {
    if err := validateParams(p); err != nil {
        return nil, err
    }

    recipients := address.FilterValidRecipients(p.Channel, p.Recipients, p.Names, p.Values)
    if dropped := len(p.Recipients) - len(recipients); dropped > 0 {
        s.Logger.Warn().Int("dropped", dropped).Int("valid", len(recipients)).
            Msg("dropped invalid or duplicate recipients")
    }
    if len(recipients) == 0 {
        return nil, appErrors.ErrNoValidRecipients
    }

    campaign := &model.Campaign{
        OwnerID:        p.OwnerID,
        Title:          p.Title,
        Channel:        p.Channel,
        Body:           p.Body,
        Status:         model.StatusSending,
        RecipientCount: len(recipients),
    }

    if s.Mode == config.DispatchQueue && s.Queue != nil {
        return s.enqueue(campaign, recipients, p.From)
    }

    // Fail fast before the campaign row exists: a backend that cannot be
    // constructed aborts the whole run, it is not a per-recipient failure.
    gw, err := s.NewGateway(campaign, p.From)
    if err != nil {
        return nil, appErrors.NewGatewayInit(p.Channel, err)
    }

    if err := s.CampaignRepo.Create(campaign); err != nil {
        return nil, fmt.Errorf("create campaign: %w", err)
    }

    outcomes := s.dispatch(ctx, gw, campaign, recipients)

    sent, failed := tally(outcomes)
    status := terminalStatus(sent)
    now := time.Now()
    if err := s.CampaignRepo.Finalize(campaign.ID, sent, failed, status, now); err != nil {
        return nil, fmt.Errorf("finalize campaign: %w", err)
    }

    result := &SendResult{
        CampaignID:  campaign.ID,
        Status:      status,
        SentCount:   sent,
        FailedCount: failed,
        Outcomes:    outcomes,
    }
    if sent == 0 {
        result.Error = firstError(outcomes)
    }
    return result, nil
}

func (s *DispatchService) enqueue(campaign *model.Campaign, recipients []model.Recipient, from string) (*SendResult, error) {
    if err := s.CampaignRepo.Create(campaign); err != nil {
        return nil, fmt.Errorf("create campaign: %w", err)
    }
    for _, r := range recipients {
        job := queue.Job{
            CampaignID: campaign.ID,
            Address:    r.Address,
            Name:       r.Name,
            Value:      r.Value,
            From:       from,
        }
        if err := s.Queue.Publish(QueueTopic, job); err != nil {
            s.Logger.Error().Err(err).Str("address", r.Address).Msg("failed to enqueue recipient")
        }
    }
    return &SendResult{CampaignID: campaign.ID, Status: model.StatusSending}, nil
}

// dispatch attempts every recipient in list order, one blocking gateway call
// at a time, and records each outcome the moment it is known. A failing
// recipient never stops the loop.
func (s *DispatchService) dispatch(ctx context.Context, gw gateway.Gateway, campaign *model.Campaign, recipients []model.Recipient) []model.RecipientOutcome {
    outcomes := make([]model.RecipientOutcome, 0, len(recipients))
    for _, r := range recipients {
        body := render.Render(campaign.Body, render.Vars{Name: r.Name, Value: r.Value})

        outcome := s.attempt(ctx, gw, r.Address, body)
        outcome.CampaignID = campaign.ID
        outcome.Address = r.Address

        if err := s.OutcomeRepo.Record(&outcome); err != nil {
            // The attempt already happened; losing the row must not lose
            // the remaining recipients.
            s.Logger.Error().Err(err).Str("address", r.Address).Msg("failed to record outcome")
        }
        outcomes = append(outcomes, outcome)
    }
    return outcomes
}

// attempt makes one gateway call under a per-call timeout and converts every
// failure mode, including a panicking backend, into a failed outcome.
func (s *DispatchService) attempt(ctx context.Context, gw gateway.Gateway, to, body string) (outcome model.RecipientOutcome) {
    outcome.AttemptedAt = time.Now()
    defer func() {
        if r := recover(); r != nil {
            outcome.Success = false
            outcome.Error = fmt.Sprintf("gateway panic: %v", r)
        }
    }()

    callCtx, cancel := context.WithTimeout(ctx, s.sendTimeout())
    defer cancel()

    res, err := gw.Send(callCtx, to, body)
    if err != nil {
        outcome.Success = false
        outcome.Error = err.Error()
        return outcome
    }
    outcome.Success = res.Success
    outcome.ProviderMessageID = res.ProviderMessageID
    outcome.Error = res.Error
    return outcome
}

// ProcessJob handles one queued recipient: render, send, record. Campaigns
// already finalized ignore stale deliveries.
func (s *DispatchService) ProcessJob(ctx context.Context, job queue.Job) error {
    campaign, err := s.CampaignRepo.GetByID(job.CampaignID)
    if err != nil {
        return err
    }
    if campaign.Terminal() {
        s.Logger.Warn().Int("campaign_id", campaign.ID).Msg("dropping job for finalized campaign")
        return nil
    }

    gw, err := s.gatewayFor(campaign, job.From)
    if err != nil {
        return appErrors.NewGatewayInit(campaign.Channel, err)
    }

    body := render.Render(campaign.Body, render.Vars{Name: job.Name, Value: job.Value})
    outcome := s.attempt(ctx, gw, job.Address, body)
    outcome.CampaignID = campaign.ID
    outcome.Address = job.Address

    return s.OutcomeRepo.Record(&outcome)
}

// gatewayFor reuses one backend client per campaign across a worker's jobs.
func (s *DispatchService) gatewayFor(campaign *model.Campaign, from string) (gateway.Gateway, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.gateways == nil {
        s.gateways = make(map[int]gateway.Gateway)
    }
    if gw, ok := s.gateways[campaign.ID]; ok {
        return gw, nil
    }
    gw, err := s.NewGateway(campaign, from)
    if err != nil {
        return nil, err
    }
    s.gateways[campaign.ID] = gw
    return gw, nil
}

func (s *DispatchService) sendTimeout() time.Duration {
    if s.SendTimeout > 0 {
        return s.SendTimeout
    }
    return defaultSendTimeout
}

func validateParams(p CampaignParams) error {
    if p.Title == "" {
        return fmt.Errorf("title is required")
    }
    if p.Body == "" {
        return fmt.Errorf("message body is required")
    }
    if p.Channel != model.ChannelSMS && p.Channel != model.ChannelEmail {
        return fmt.Errorf("unsupported channel %q", p.Channel)
    }
    return nil
}

// tally folds the immutable outcome list into counts; status and counts are
// derived from the list, never from accumulators inside the loop.
func tally(outcomes []model.RecipientOutcome) (sent, failed int) {
    for _, o := range outcomes {
        if o.Success {
            sent++
        } else {
            failed++
        }
    }
    return sent, failed
}

// terminalStatus: one success anywhere makes the campaign `sent`; only a
// run with zero successes ends `failed`.
func terminalStatus(sent int) string {
    if sent > 0 {
        return model.StatusSent
    }
    return model.StatusFailed
}

func firstError(outcomes []model.RecipientOutcome) string {
    for _, o := range outcomes {
        if !o.Success && o.Error != "" {
            return o.Error
        }
    }
    return ""
}
