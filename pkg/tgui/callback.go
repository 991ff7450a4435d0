package tgui

import "strings"

// Data formats inline callback data as "scope:action" or "scope:action:payload".
// Payload is kept as-is (no escaping).
func Data(scope, action, payload string) string {
	scope = strings.TrimSpace(scope)
	action = strings.TrimSpace(action)
	if payload == "" {
		return scope + ":" + action
	}
	return scope + ":" + action + ":" + payload
}

// Split parses callback data produced by Data. The payload part may itself
// contain colons; only the first two separators are significant.
func Split(data string) (scope, action, payload string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 {
		return "", "", "", false
	}
	scope, action = parts[0], parts[1]
	if scope == "" || action == "" {
		return "", "", "", false
	}
	if len(parts) == 3 {
		payload = parts[2]
	}
	return scope, action, payload, true
}
