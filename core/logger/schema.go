package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// statusNames is the closed set of values for the "status" key.
var statusNames = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
	"cancelled":    {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if _, ok := statusNames[s]; ok {
		return s
	}
	return status
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"op",
	"cb_key",
	"flow",
	"step",
	"outcome",
	"duration_ms",
	"user_status",
	"topic",
	"price",
	"approval_id",
	"decision",
	"mode",
	"listen",
	"public_url",
	"driver",
	"path",
	"http_code",
	"err",
	"err_code",
	"retryable",
	"attempts",
	"backoff_ms",
	"collapsed",
	"repeats",
}
