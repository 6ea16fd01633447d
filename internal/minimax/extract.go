package minimax

import "strings"

// The remote API has been observed to nest the same logical value differently
// across endpoints and versions. Rather than encode one schema per variant,
// callers supply an ordered list of dot-separated candidate paths and take
// the first match against the decoded JSON tree.

// extractValue walks node along each candidate path in order and returns the
// first value found.
func extractValue(node any, paths ...string) (any, bool) {
	for _, path := range paths {
		current := node
		found := true
		for _, key := range strings.Split(path, ".") {
			m, ok := current.(map[string]any)
			if !ok {
				found = false
				break
			}
			current, ok = m[key]
			if !ok {
				found = false
				break
			}
		}
		if found {
			return current, true
		}
	}
	return nil, false
}

// extractString returns the first non-empty string found along the candidate
// paths.
func extractString(node any, paths ...string) string {
	for _, path := range paths {
		if v, ok := extractValue(node, path); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// extractInt returns the first numeric value found along the candidate paths.
// JSON numbers decode as float64.
func extractInt(node any, paths ...string) (int, bool) {
	if v, ok := extractValue(node, paths...); ok {
		switch n := v.(type) {
		case float64:
			return int(n), true
		case int:
			return n, true
		}
	}
	return 0, false
}

// extractStringList returns the first non-empty list of URLs found along the
// candidate paths. Lists arrive either as plain strings or as objects with a
// "url" field, depending on the endpoint.
func extractStringList(node any, paths ...string) []string {
	for _, path := range paths {
		v, ok := extractValue(node, path)
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok || len(items) == 0 {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			switch entry := item.(type) {
			case string:
				if strings.TrimSpace(entry) != "" {
					out = append(out, strings.TrimSpace(entry))
				}
			case map[string]any:
				if url := extractString(entry, "url"); url != "" {
					out = append(out, url)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
