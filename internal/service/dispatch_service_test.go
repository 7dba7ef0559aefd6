package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/artloop/notify-backend/internal/errors"
	"github.com/artloop/notify-backend/internal/gateway"
	"github.com/artloop/notify-backend/internal/model"
	"github.com/artloop/notify-backend/internal/service"
)

// --- In-memory fakes ---

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	nextID    int
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[int]*model.Campaign{}}
}

func (r *fakeCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	stored := *c
	r.campaigns[c.ID] = &stored
	return nil
}

func (r *fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCampaignRepo) List(offset, limit int, channel, status string, ownerID int) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Campaign{}
	for id := 1; id <= r.nextID; id++ {
		c, ok := r.campaigns[id]
		if !ok {
			continue
		}
		if channel != "" && c.Channel != channel {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		if ownerID > 0 && c.OwnerID != ownerID {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	total := len(out)
	if offset > total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *fakeCampaignRepo) ListStuckSending() ([]*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Campaign{}
	for id := 1; id <= r.nextID; id++ {
		if c, ok := r.campaigns[id]; ok && c.Status == model.StatusSending {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) Finalize(campaignID, sentCount, failedCount int, status string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.SentCount = sentCount
	c.FailedCount = failedCount
	c.Status = status
	c.SentAt = &sentAt
	return nil
}

type fakeOutcomeRepo struct {
	mu       sync.Mutex
	outcomes []model.RecipientOutcome
	nextID   int
}

func (r *fakeOutcomeRepo) Record(o *model.RecipientOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	r.outcomes = append(r.outcomes, *o)
	return nil
}

func (r *fakeOutcomeRepo) ListByCampaign(campaignID int) ([]model.RecipientOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.RecipientOutcome{}
	for _, o := range r.outcomes {
		if o.CampaignID == campaignID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOutcomeRepo) CountByCampaign(campaignID int) (attempted, sent, failed int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.outcomes {
		if o.CampaignID != campaignID {
			continue
		}
		attempted++
		if o.Success {
			sent++
		} else {
			failed++
		}
	}
	return attempted, sent, failed, nil
}

func (r *fakeOutcomeRepo) FirstError(campaignID int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.outcomes {
		if o.CampaignID == campaignID && !o.Success {
			return o.Error, nil
		}
	}
	return "", nil
}

// scriptedGateway fails, rejects, panics or hangs for scripted addresses and
// succeeds for the rest.
type scriptedGateway struct {
	mu       sync.Mutex
	calls    []string
	bodies   map[string]string
	failOn   map[string]string
	rejectOn map[string]string
	panicOn  map[string]bool
	hangOn   map[string]bool
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{
		bodies:   map[string]string{},
		failOn:   map[string]string{},
		rejectOn: map[string]string{},
		panicOn:  map[string]bool{},
		hangOn:   map[string]bool{},
	}
}

func (g *scriptedGateway) Send(ctx context.Context, to, body string) (gateway.Outcome, error) {
	g.mu.Lock()
	g.calls = append(g.calls, to)
	g.bodies[to] = body
	g.mu.Unlock()

	if g.panicOn[to] {
		panic("scripted panic")
	}
	if g.hangOn[to] {
		<-ctx.Done()
		return gateway.Outcome{}, ctx.Err()
	}
	if msg, ok := g.failOn[to]; ok {
		return gateway.Outcome{}, errors.New(msg)
	}
	if msg, ok := g.rejectOn[to]; ok {
		return gateway.Outcome{Success: false, Error: msg}, nil
	}
	return gateway.Outcome{Success: true, ProviderMessageID: "pm-" + to}, nil
}

func newService(campaigns *fakeCampaignRepo, outcomes *fakeOutcomeRepo, gw gateway.Gateway) *service.DispatchService {
	return &service.DispatchService{
		CampaignRepo: campaigns,
		OutcomeRepo:  outcomes,
		NewGateway: func(c *model.Campaign, sender string) (gateway.Gateway, error) {
			return gw, nil
		},
		SendTimeout: 200 * time.Millisecond,
		Logger:      zerolog.Nop(),
	}
}

// --- Tests ---

func TestCreateAndSendCampaignScenario(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	outcomes := &fakeOutcomeRepo{}
	gw := newScriptedGateway()
	gw.failOn["01012345679"] = "provider unreachable"
	svc := newService(campaigns, outcomes, gw)

	result, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "Spring coupons",
		Body:       "Hi {name}, {value}",
		Channel:    model.ChannelSMS,
		Recipients: []string{"010-1234-5678", "1012345679", "bad-number"},
		Names:      []string{"Kim", ""},
		Values:     []string{"", "Coupon: A1"},
		OwnerID:    1,
	})
	require.NoError(t, err)

	// Third address dropped before dispatch; two attempted in order.
	assert.Equal(t, []string{"01012345678", "01012345679"}, gw.calls)
	assert.Equal(t, "Hi Kim,", gw.bodies["01012345678"])
	assert.Equal(t, "Coupon: A1", gw.bodies["01012345679"])

	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, model.StatusSent, result.Status)
	assert.Empty(t, result.Error)

	saved, err := campaigns.GetByID(result.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, saved.Status)
	assert.Equal(t, 2, saved.RecipientCount)
	assert.Equal(t, saved.RecipientCount, saved.SentCount+saved.FailedCount)
	assert.NotNil(t, saved.SentAt)
}

func TestDispatchIsolatesPerRecipientFailure(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	outcomes := &fakeOutcomeRepo{}
	gw := newScriptedGateway()
	gw.failOn["01022222222"] = "boom"
	svc := newService(campaigns, outcomes, gw)

	result, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "Isolation",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: []string{"01011111111", "01022222222", "01033333333"},
		OwnerID:    1,
	})
	require.NoError(t, err)

	// Failure in the middle never stops the loop.
	assert.Equal(t, []string{"01011111111", "01022222222", "01033333333"}, gw.calls)
	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Outcomes, 3)
	assert.True(t, result.Outcomes[0].Success)
	assert.False(t, result.Outcomes[1].Success)
	assert.Contains(t, result.Outcomes[1].Error, "boom")
	assert.True(t, result.Outcomes[2].Success)
}

func TestDispatchSurvivesPanickingGateway(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	outcomes := &fakeOutcomeRepo{}
	gw := newScriptedGateway()
	gw.panicOn["01022222222"] = true
	svc := newService(campaigns, outcomes, gw)

	result, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "Panic",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: []string{"01022222222", "01033333333"},
		OwnerID:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Contains(t, result.Outcomes[0].Error, "panic")
}

func TestDispatchTimesOutHungGateway(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	outcomes := &fakeOutcomeRepo{}
	gw := newScriptedGateway()
	gw.hangOn["01022222222"] = true
	svc := newService(campaigns, outcomes, gw)
	svc.SendTimeout = 20 * time.Millisecond

	start := time.Now()
	result, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "Hung",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: []string{"01022222222", "01033333333"},
		OwnerID:    1,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Contains(t, result.Outcomes[0].Error, "context deadline exceeded")
}

func TestAllFailuresReportRepresentativeError(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	outcomes := &fakeOutcomeRepo{}
	gw := newScriptedGateway()
	gw.failOn["01011111111"] = "first failure"
	gw.rejectOn["01022222222"] = "second failure"
	svc := newService(campaigns, outcomes, gw)

	result, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "All fail",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: []string{"01011111111", "01022222222"},
		OwnerID:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, 0, result.SentCount)
	assert.Equal(t, 2, result.FailedCount)
	assert.Equal(t, "first failure", result.Error)
}

func TestOutcomesRecordedImmediatelyPerRecipient(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	outcomes := &fakeOutcomeRepo{}
	gw := newScriptedGateway()
	svc := newService(campaigns, outcomes, gw)

	result, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "Rows",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: []string{"01011111111", "01022222222"},
		OwnerID:    1,
	})
	require.NoError(t, err)

	rows, err := outcomes.ListByCampaign(result.CampaignID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "01011111111", rows[0].Address)
	assert.Equal(t, "01022222222", rows[1].Address)
	for _, row := range rows {
		assert.False(t, row.AttemptedAt.IsZero())
		assert.NotEmpty(t, row.ProviderMessageID)
	}
}

func TestNoValidRecipients(t *testing.T) {
	svc := newService(newFakeCampaignRepo(), &fakeOutcomeRepo{}, newScriptedGateway())
	_, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "Empty",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: []string{"bad", "worse"},
		OwnerID:    1,
	})
	assert.ErrorIs(t, err, appErrors.ErrNoValidRecipients)
}

func TestGatewayInitFailureAbortsBeforeCampaignExists(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	svc := &service.DispatchService{
		CampaignRepo: campaigns,
		OutcomeRepo:  &fakeOutcomeRepo{},
		NewGateway: func(c *model.Campaign, sender string) (gateway.Gateway, error) {
			return nil, errors.New("credentials missing")
		},
		Logger: zerolog.Nop(),
	}

	_, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "No creds",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: []string{"01011111111"},
		OwnerID:    1,
	})
	require.Error(t, err)
	var initErr *appErrors.ErrGatewayInit
	assert.ErrorAs(t, err, &initErr)
	assert.Empty(t, campaigns.campaigns)
}

func TestValidateParams(t *testing.T) {
	svc := newService(newFakeCampaignRepo(), &fakeOutcomeRepo{}, newScriptedGateway())
	cases := []service.CampaignParams{
		{Body: "b", Channel: model.ChannelSMS, Recipients: []string{"01011111111"}},
		{Title: "t", Channel: model.ChannelSMS, Recipients: []string{"01011111111"}},
		{Title: "t", Body: "b", Channel: "push", Recipients: []string{"01011111111"}},
	}
	for i, p := range cases {
		_, err := svc.CreateAndSendCampaign(context.Background(), p)
		assert.Error(t, err, "case %d", i)
	}
}

func TestCountInvariantHoldsForMixedResults(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	outcomes := &fakeOutcomeRepo{}
	gw := newScriptedGateway()
	recipients := []string{}
	for i := 0; i < 9; i++ {
		addr := fmt.Sprintf("0101111%04d", i)
		recipients = append(recipients, addr)
		if i%3 == 0 {
			gw.failOn[addr] = "down"
		}
	}
	svc := newService(campaigns, outcomes, gw)

	result, err := svc.CreateAndSendCampaign(context.Background(), service.CampaignParams{
		Title:      "Invariant",
		Body:       "hello",
		Channel:    model.ChannelSMS,
		Recipients: recipients,
		OwnerID:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, len(recipients), result.SentCount+result.FailedCount)
}
