package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys containing any of these are redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"key",
	"salt",
	"credential",
	"auth",
}

const redactedValue = "***REDACTED***"

// redactSensitive hides string attributes under sensitive keys and masks
// values shaped like hex AES keys whatever their key. Groups are walked.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if looksLikeHexKey(v) {
			return slog.String(a.Key, maskValue(v))
		}
		if v != "" && sensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(key, pattern) {
			return true
		}
	}
	return false
}

// looksLikeHexKey reports whether value is exactly an AES-128/192/256 key
// in hex.
func looksLikeHexKey(value string) bool {
	switch len(value) {
	case 32, 48, 64:
	default:
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// maskValue keeps the first and last three characters.
func maskValue(value string) string {
	if len(value) <= 6 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}
