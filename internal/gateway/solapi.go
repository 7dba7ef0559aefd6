// internal/gateway/solapi.go
package gateway

import (
    "bytes"
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "github.com/artloop/notify-backend/internal/config"
)

const solapiLongBodyBytes = 90

// SolapiGateway sends SMS through the Solapi JSON API with HMAC-SHA256
// request signing. Interchangeable with AligoGateway.
type SolapiGateway struct {
    cfg    config.SolapiConfig
    sender string
    client *http.Client
    logger zerolog.Logger
    now    func() time.Time
}

func NewSolapiGateway(cfg config.SolapiConfig, sender string, logger zerolog.Logger) (*SolapiGateway, error) {
    if cfg.APIKey == "" || cfg.APISecret == "" {
        return nil, errors.New("solapi: api key and secret are required")
    }
    if sender == "" {
        sender = cfg.Sender
    }
    if sender == "" {
        return nil, errors.New("solapi: sender number is required")
    }
    if cfg.BaseURL == "" {
        cfg.BaseURL = "https://api.solapi.com"
    }
    return &SolapiGateway{
        cfg:    cfg,
        sender: sender,
        client: &http.Client{Timeout: 30 * time.Second},
        logger: logger,
        now:    time.Now,
    }, nil
}

func (g *SolapiGateway) Send(ctx context.Context, to, body string) (Outcome, error) {
    msgType := "SMS"
    if len(body) > solapiLongBodyBytes {
        msgType = "LMS"
    }

    payload := map[string]any{
        "message": map[string]any{
            "to":   to,
            "from": g.sender,
            "text": body,
            "type": msgType,
        },
    }
    buf, err := json.Marshal(payload)
    if err != nil {
        return Outcome{}, fmt.Errorf("solapi: marshal payload: %w", err)
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/messages/v4/send", bytes.NewReader(buf))
    if err != nil {
        return Outcome{}, fmt.Errorf("solapi: build request: %w", err)
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Authorization", g.authorization())

    resp, err := g.client.Do(req)
    if err != nil {
        return Outcome{}, fmt.Errorf("solapi: %w", err)
    }
    defer resp.Body.Close()

    var res struct {
        MessageID     string `json:"messageId"`
        StatusCode    string `json:"statusCode"`
        StatusMessage string `json:"statusMessage"`
        ErrorMessage  string `json:"errorMessage"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
        return Outcome{}, fmt.Errorf("solapi: decode response: %w", err)
    }

    if resp.StatusCode != http.StatusOK || res.MessageID == "" {
        reason := res.ErrorMessage
        if reason == "" {
            reason = res.StatusMessage
        }
        if reason == "" {
            reason = fmt.Sprintf("http %d", resp.StatusCode)
        }
        g.logger.Warn().Str("to", to).Str("reason", reason).Msg("solapi rejected message")
        return Outcome{Success: false, Error: "solapi: " + reason}, nil
    }

    g.logger.Debug().Str("to", to).Str("type", msgType).Str("message_id", res.MessageID).Msg("solapi accepted message")
    return Outcome{Success: true, ProviderMessageID: res.MessageID}, nil
}

// authorization builds the per-request HMAC-SHA256 header Solapi expects:
// a signature over date+salt keyed by the API secret.
func (g *SolapiGateway) authorization() string {
    date := g.now().UTC().Format(time.RFC3339)
    salt := uuid.NewString()
    mac := hmac.New(sha256.New, []byte(g.cfg.APISecret))
    mac.Write([]byte(date + salt))
    signature := hex.EncodeToString(mac.Sum(nil))
    return fmt.Sprintf("HMAC-SHA256 apiKey=%s, date=%s, salt=%s, signature=%s", g.cfg.APIKey, date, salt, signature)
}
