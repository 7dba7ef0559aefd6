// internal/gateway/smtp.go
package gateway

import (
    "context"
    "errors"
    "fmt"
    "net/smtp"
    "strings"

    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "github.com/artloop/notify-backend/internal/config"
)

// SMTPGateway delivers campaign email through a plain SMTP relay. The
// campaign title becomes the subject line; the rendered body is sent as
// UTF-8 plain text.
type SMTPGateway struct {
    cfg     config.SMTPConfig
    subject string
    auth    smtp.Auth
    logger  zerolog.Logger

    // sendMail is swapped in tests.
    sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPGateway(cfg config.SMTPConfig, subject string, logger zerolog.Logger) (*SMTPGateway, error) {
    if strings.TrimSpace(cfg.Host) == "" {
        return nil, errors.New("smtp: host is required")
    }
    if cfg.Port <= 0 || cfg.Port > 65535 {
        return nil, fmt.Errorf("smtp: invalid port %d", cfg.Port)
    }
    if strings.TrimSpace(cfg.From) == "" {
        return nil, errors.New("smtp: from address is required")
    }

    g := &SMTPGateway{
        cfg:      cfg,
        subject:  subject,
        logger:   logger,
        sendMail: smtp.SendMail,
    }
    if strings.TrimSpace(cfg.User) != "" {
        g.auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
    }
    return g, nil
}

func (g *SMTPGateway) Send(ctx context.Context, to, body string) (Outcome, error) {
    if err := ctx.Err(); err != nil {
        return Outcome{}, err
    }

    messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), g.cfg.Host)

    var msg strings.Builder
    fmt.Fprintf(&msg, "From: %s\r\n", g.cfg.From)
    fmt.Fprintf(&msg, "To: %s\r\n", to)
    fmt.Fprintf(&msg, "Subject: %s\r\n", g.subject)
    fmt.Fprintf(&msg, "Message-Id: %s\r\n", messageID)
    msg.WriteString("MIME-Version: 1.0\r\n")
    msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
    msg.WriteString("\r\n")
    msg.WriteString(body)

    addr := fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port)

    done := make(chan error, 1)
    go func() {
        done <- g.sendMail(addr, g.auth, g.cfg.From, []string{to}, []byte(msg.String()))
    }()

    select {
    case <-ctx.Done():
        return Outcome{}, fmt.Errorf("smtp: %w", ctx.Err())
    case err := <-done:
        if err != nil {
            return Outcome{}, fmt.Errorf("smtp: %w", err)
        }
    }

    g.logger.Debug().Str("to", to).Str("message_id", messageID).Msg("smtp accepted message")
    return Outcome{Success: true, ProviderMessageID: messageID}, nil
}
