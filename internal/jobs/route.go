package jobs

import (
	"strconv"
	"strings"
)

// ParseRoute extracts the resource id and action from a URL path like
// /api/history/{id}/{action}. apiPrefix should be like "/api/history/".
// The action may be empty for bare /api/history/{id} routes.
func ParseRoute(path, apiPrefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, apiPrefix)
	if rest == path || rest == "" {
		return "", "", false
	}

	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	id = parts[0]
	if id == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action, true
}

// ParseSlotRoute extracts the shot slot and action from a URL path like
// /api/shots/{slot}/{action}. The slot must be a non-negative integer.
func ParseSlotRoute(path, apiPrefix string) (slot int, action string, ok bool) {
	id, action, ok := ParseRoute(path, apiPrefix)
	if !ok || action == "" {
		return 0, "", false
	}

	slot, err := strconv.Atoi(id)
	if err != nil || slot < 0 {
		return 0, "", false
	}
	return slot, action, true
}
