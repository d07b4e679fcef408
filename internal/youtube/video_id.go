package youtube

import (
	"net/url"
	"strings"
)

// ParseVideoID extracts the id from either a youtu.be short link or a
// watch URL carrying v=. It returns "" when neither shape matches.
func ParseVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}

	return u.Query().Get("v")
}
