package logger

import "strings"

var allowedStatus = map[string]string{
	"ok":        "ok",
	"fail":      "fail",
	"skip":      "skip",
	"retry":     "retry",
	"rejected":  "rejected",
	"cancelled": "cancelled",
}

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "", "info":
		return "INFO"
	case "warning":
		return "WARN"
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	mapped, ok := allowedStatus[strings.ToLower(strings.TrimSpace(status))]
	return mapped, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"method",
	"path",
	"http_code",
	"user_id",
	"command",
	"handler",
	"step",
	"message_type",
	"outcome",
	"duration_ms",
	"appointment_id",
	"date",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}
