// internal/gateway/aligo.go
package gateway

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "github.com/artloop/notify-backend/internal/config"
)

// Bodies above this many bytes go out as LMS instead of SMS.
const aligoLongBodyBytes = 90

// AligoGateway sends SMS through the Aligo form-POST API.
type AligoGateway struct {
    cfg    config.AligoConfig
    sender string
    client *http.Client
    logger zerolog.Logger
}

// NewAligoGateway validates credentials and builds the HTTP client once; the
// same client is reused for every recipient in a dispatch run. sender
// overrides the configured outbound number when non-empty.
func NewAligoGateway(cfg config.AligoConfig, sender string, logger zerolog.Logger) (*AligoGateway, error) {
    if cfg.APIKey == "" || cfg.UserID == "" {
        return nil, errors.New("aligo: api key and user id are required")
    }
    if sender == "" {
        sender = cfg.Sender
    }
    if sender == "" {
        return nil, errors.New("aligo: sender number is required")
    }
    if cfg.BaseURL == "" {
        cfg.BaseURL = "https://apis.aligo.in"
    }
    return &AligoGateway{
        cfg:    cfg,
        sender: sender,
        client: &http.Client{Timeout: 30 * time.Second},
        logger: logger,
    }, nil
}

func (g *AligoGateway) Send(ctx context.Context, to, body string) (Outcome, error) {
    msgType := "SMS"
    if len(body) > aligoLongBodyBytes {
        msgType = "LMS"
    }

    form := url.Values{}
    form.Set("key", g.cfg.APIKey)
    form.Set("user_id", g.cfg.UserID)
    form.Set("sender", g.sender)
    form.Set("receiver", to)
    form.Set("msg", body)
    form.Set("msg_type", msgType)

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/send/", strings.NewReader(form.Encode()))
    if err != nil {
        return Outcome{}, fmt.Errorf("aligo: build request: %w", err)
    }
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

    resp, err := g.client.Do(req)
    if err != nil {
        return Outcome{}, fmt.Errorf("aligo: %w", err)
    }
    defer resp.Body.Close()

    var res struct {
        ResultCode json.Number `json:"result_code"`
        Message    string      `json:"message"`
        MsgID      json.Number `json:"msg_id"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
        return Outcome{}, fmt.Errorf("aligo: decode response: %w", err)
    }

    if res.ResultCode.String() != "1" {
        g.logger.Warn().Str("to", to).Str("code", res.ResultCode.String()).Str("message", res.Message).Msg("aligo rejected message")
        return Outcome{Success: false, Error: fmt.Sprintf("aligo: %s (code %s)", res.Message, res.ResultCode.String())}, nil
    }

    g.logger.Debug().Str("to", to).Str("type", msgType).Str("msg_id", res.MsgID.String()).Msg("aligo accepted message")
    return Outcome{Success: true, ProviderMessageID: res.MsgID.String()}, nil
}
