package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the placeholder emitted for sensitive log fields.
const RedactedValue = "[REDACTED]"

// Keys that may appear in auth and keystore log lines but must never be
// emitted verbatim.
var sensitiveKeys = map[string]struct{}{
	"password":    {},
	"token":       {},
	"private_key": {},
	"jwt":         {},
	"secret":      {},
}

// IsSensitive reports whether a log key must be masked.
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns a slog.Attr with the value redacted when the key is
// sensitive. Empty values pass through to avoid log noise.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !IsSensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
