// internal/gateway/mock.go
package gateway

import (
    "context"
    "errors"
    "strings"

    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

// MockGateway is the default backend for development and tests. It succeeds
// deterministically unless the destination carries the fail marker, so test
// scenarios can script per-recipient failures without network access.
type MockGateway struct {
    logger zerolog.Logger

    // FailAddresses marks destinations whose sends should fail.
    FailAddresses map[string]bool
}

func NewMockGateway(logger zerolog.Logger) *MockGateway {
    return &MockGateway{logger: logger}
}

func (g *MockGateway) Send(ctx context.Context, to, body string) (Outcome, error) {
    if err := ctx.Err(); err != nil {
        return Outcome{}, err
    }
    if g.FailAddresses[to] || strings.Contains(body, "[mock-fail]") {
        return Outcome{}, errors.New("mock: simulated send failure")
    }
    id := uuid.NewString()
    g.logger.Debug().Str("to", to).Str("message_id", id).Msg("mock accepted message")
    return Outcome{Success: true, ProviderMessageID: id}, nil
}
