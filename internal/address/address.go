// internal/address/address.go
package address

import (
    "regexp"
    "strings"

    "github.com/artloop/notify-backend/internal/model"
)

var (
    nonDigit   = regexp.MustCompile(`\D`)
    emailShape = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9\-]+(\.[a-z0-9\-]+)*\.[a-z]{2,}$`)
)

// NormalizePhone canonicalizes a raw phone number into a bare digit string.
// All punctuation is stripped first. A 10-digit number starting with 1 is a
// mobile number that lost its leading zero on the way in (spreadsheet
// imports do this), so the zero is restored here. This is the only place
// that correction lives.
func NormalizePhone(raw string) (string, bool) {
    digits := nonDigit.ReplaceAllString(raw, "")
    if len(digits) == 10 && strings.HasPrefix(digits, "1") {
        digits = "0" + digits
    }
    if !strings.HasPrefix(digits, "01") {
        return "", false
    }
    if len(digits) < 10 || len(digits) > 11 {
        return "", false
    }
    return digits, true
}

// NormalizeEmail trims, lowercases and shape-checks an email address.
func NormalizeEmail(raw string) (string, bool) {
    addr := strings.ToLower(strings.TrimSpace(raw))
    if !emailShape.MatchString(addr) {
        return "", false
    }
    return addr, true
}

// Normalize dispatches on channel.
func Normalize(channel, raw string) (string, bool) {
    switch channel {
    case model.ChannelEmail:
        return NormalizeEmail(raw)
    default:
        return NormalizePhone(raw)
    }
}

// FilterValid returns the distinct, normalized, valid subset of raws in
// first-seen order. Invalid entries and duplicates are dropped without a
// per-item error; callers see the loss only as a smaller result.
func FilterValid(channel string, raws []string) []string {
    valid := []string{}
    seen := map[string]bool{}
    for _, raw := range raws {
        addr, ok := Normalize(channel, raw)
        if !ok || seen[addr] {
            continue
        }
        seen[addr] = true
        valid = append(valid, addr)
    }
    return valid
}

// FilterValidRecipients works like FilterValid but keeps the per-recipient
// personalization variables aligned with the surviving addresses. names and
// values are indexed against raws; short or missing slices mean no
// personalization for the remainder.
func FilterValidRecipients(channel string, raws, names, values []string) []model.Recipient {
    recipients := []model.Recipient{}
    seen := map[string]bool{}
    for i, raw := range raws {
        addr, ok := Normalize(channel, raw)
        if !ok || seen[addr] {
            continue
        }
        seen[addr] = true
        r := model.Recipient{Address: addr}
        if i < len(names) {
            r.Name = names[i]
        }
        if i < len(values) {
            r.Value = values[i]
        }
        recipients = append(recipients, r)
    }
    return recipients
}
