// Package logging provides helpers for keeping credentials out of log output.
package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaskHeader redacts sensitive header values based on header name.
//
// Rules:
// - Password/secret headers: "[REDACTED]" (no partial reveal)
// - Authorization and API key headers: "****" + last4chars (e.g., "****ab3f")
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "private-key") {
		return "[REDACTED]"
	}

	if lowerName == "authorization" ||
		lowerName == "x-auth-key" ||
		lowerName == "x-api-key" {
		if len(value) < 4 {
			return "****"
		}
		return "****" + value[len(value)-4:]
	}

	return value
}

// MaskJSONBody redacts non-allowlisted fields in a JSON body. Profile
// payloads carry Cloudflare API tokens, so masking is allowlist-based: only
// fields named in allowlist survive, every other primitive becomes
// "[REDACTED]".
//
// A nil allowlist disables masking entirely. Bodies that fail to parse as
// JSON are returned unchanged.
func MaskJSONBody(body []byte, allowlist []string) []byte {
	if allowlist == nil || len(body) == 0 {
		return body
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	allowed := make(map[string]bool, len(allowlist))
	for _, field := range allowlist {
		allowed[field] = true
	}

	masked := maskJSONValue(data, allowed)

	result, err := json.Marshal(masked)
	if err != nil {
		return body
	}
	return result
}

func maskJSONValue(value interface{}, allowed map[string]bool) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			if allowed[key] {
				result[key] = maskJSONValue(val, allowed)
				continue
			}
			switch val.(type) {
			case map[string]interface{}, []interface{}:
				// Containers keep their shape; nested fields are
				// masked individually.
				result[key] = maskJSONValue(val, allowed)
			default:
				result[key] = "[REDACTED]"
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item, allowed)
		}
		return result
	default:
		return value
	}
}

// FormatBinaryData summarizes non-UTF-8 bodies for logging.
func FormatBinaryData(data []byte) string {
	return fmt.Sprintf("[BINARY: %d bytes]", len(data))
}
