// internal/model/recipient.go
package model

// Recipient is one normalized destination address together with the
// personalization variables that belong to it. Non-personalized campaigns
// leave Name and Value empty.
type Recipient struct {
    Address string `json:"address"`
    Name    string `json:"name,omitempty"`
    Value   string `json:"value,omitempty"`
}
