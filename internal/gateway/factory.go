// internal/gateway/factory.go
package gateway

import (
    "fmt"
    "strings"

    "github.com/rs/zerolog"

    "github.com/artloop/notify-backend/internal/config"
    "github.com/artloop/notify-backend/internal/model"
)

// ForCampaign constructs the configured backend for the campaign's channel.
// Exactly one backend per channel is active per process; the choice is made
// here, once per dispatch run, and the returned client is reused for every
// recipient. Missing credentials surface as a constructor error before any
// recipient is attempted. sender optionally overrides the configured
// outbound address.
func ForCampaign(c *model.Campaign, sender string, cfg config.Config, logger zerolog.Logger) (Gateway, error) {
    switch c.Channel {
    case model.ChannelSMS:
        backend := normalizeBackend(cfg.SMSProvider)
        switch backend {
        case "aligo":
            return NewAligoGateway(cfg.Aligo, sender, logger)
        case "solapi":
            return NewSolapiGateway(cfg.Solapi, sender, logger)
        case "mock":
            return NewMockGateway(logger), nil
        default:
            return nil, fmt.Errorf("unsupported sms backend %q", cfg.SMSProvider)
        }
    case model.ChannelEmail:
        backend := normalizeBackend(cfg.EmailProvider)
        switch backend {
        case "smtp":
            return NewSMTPGateway(cfg.SMTP, c.Title, logger)
        case "mock":
            return NewMockGateway(logger), nil
        default:
            return nil, fmt.Errorf("unsupported email backend %q", cfg.EmailProvider)
        }
    default:
        return nil, fmt.Errorf("unsupported channel %q", c.Channel)
    }
}

func normalizeBackend(value string) string {
    value = strings.TrimSpace(strings.ToLower(value))
    if value == "" {
        return "mock"
    }
    return value
}
