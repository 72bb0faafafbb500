package handlers

import "strings"

// extractCookieToken pulls a named cookie's value out of a raw Cookie
// header, or returns empty if absent.
func extractCookieToken(cookieHeader, cookieName string) string {
	_, after, found := strings.Cut(cookieHeader, cookieName+"=")
	if !found {
		return ""
	}
	if idx := strings.Index(after, ";"); idx != -1 {
		after = after[:idx]
	}
	return strings.TrimSpace(after)
}
