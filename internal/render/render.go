// internal/render/render.go
package render

import (
    "regexp"
    "strings"
)

// Vars holds the personalization variables for one recipient. Empty fields
// mean the slot is absent for that recipient.
type Vars struct {
    Name  string
    Value string
}

// An absent slot is removed together with the fixed text composed around it:
// suffix letters glued to the placeholder (honorifics like 님), trailing
// punctuation and spacing, and a bare word bound to the slot on the left by
// whitespace only (greetings like "Hi {name},"). Punctuation on the left is
// kept so "Hi Kim, {value}" degrades to "Hi Kim," and not "Hi Kim".
var (
    absentName  = regexp.MustCompile(`(?:[\p{L}\p{N}]+[ \t]+)?\{name\}\p{L}*\p{P}*[ \t]*`)
    absentValue = regexp.MustCompile(`(?:[\p{L}\p{N}]+[ \t]+)?\{value\}\p{L}*\p{P}*[ \t]*`)
)

// Render substitutes the {name} and {value} placeholders into template.
// Present variables are substituted verbatim; absent ones degrade by pruning
// the placeholder and its bound surroundings. Rendering never fails.
func Render(template string, vars Vars) string {
    out := template
    if vars.Name != "" {
        out = strings.ReplaceAll(out, "{name}", vars.Name)
    } else {
        out = absentName.ReplaceAllString(out, "")
    }
    if vars.Value != "" {
        out = strings.ReplaceAll(out, "{value}", vars.Value)
    } else {
        out = absentValue.ReplaceAllString(out, "")
    }
    return strings.TrimSpace(out)
}
