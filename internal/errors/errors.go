package appErrors

import (
    "errors"
    "fmt"
)

// ErrNoValidRecipients is returned when every supplied address was dropped
// during normalization.
var ErrNoValidRecipients = errors.New("no valid recipients after normalization")

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
    CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

// ErrGatewayInit marks a campaign-aborting failure: the backend client could
// not be constructed, so no recipient was attempted.
type ErrGatewayInit struct {
    Channel string
    Cause   error
}

func (e *ErrGatewayInit) Error() string {
    return fmt.Sprintf("gateway init failed for channel %s: %v", e.Channel, e.Cause)
}

func (e *ErrGatewayInit) Unwrap() error {
    return e.Cause
}

func NewGatewayInit(channel string, cause error) error {
    return &ErrGatewayInit{Channel: channel, Cause: cause}
}
