package instance

import (
	"os"
	"strings"
)

const fallbackID = "pos-0"

// ID returns the process identifier used in logs and lock ownership.
// POS_INSTANCE_ID wins, then the platform DYNO name, then the hostname.
func ID() string {
	for _, key := range []string{"POS_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
