// internal/gateway/gateway.go
package gateway

import "context"

// Outcome is the normalized result of one provider call.
type Outcome struct {
    Success           bool   `json:"success"`
    ProviderMessageID string `json:"provider_message_id,omitempty"`
    Error             string `json:"error,omitempty"`
}

// Gateway is the uniform send capability every backend implements. A returned
// error means the call itself faulted (transport, timeout); a provider-level
// rejection comes back as an Outcome with Success=false and a nil error.
type Gateway interface {
    Send(ctx context.Context, to, body string) (Outcome, error)
}
