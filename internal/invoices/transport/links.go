package transport

import (
	"net/url"
	"strings"
)

// InvitationLink returns the client portal URL for an invitation key, or ""
// when no portal base URL is configured.
func InvitationLink(baseURL, invitationKey string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || invitationKey == "" {
		return ""
	}
	return baseURL + "/view/" + url.PathEscape(invitationKey)
}
