// Package cloudflare provides the DNS record update client and response types.
package cloudflare

import "encoding/json"

// UpdatePayload is the request body for a DNS record update call.
type UpdatePayload struct {
	Content string `json:"content"`
	Name    string `json:"name"`
	Proxied bool   `json:"proxied"`
	Type    string `json:"type"`
	TTL     int    `json:"ttl"`
	Comment string `json:"comment"`
}

// UpdateResponse is the subset of the provider's response envelope the agent
// inspects. Success is the provider's own verdict; HTTP status is ignored.
type UpdateResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ParseResponse decodes a raw response body. A body that does not parse is
// reported as unsuccessful, matching how callers treat it.
func ParseResponse(body string) UpdateResponse {
	var resp UpdateResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return UpdateResponse{Success: false}
	}
	return resp
}

// synthesizeError builds the body returned when the call never reached the
// provider, so that one failed record reads like any other failed outcome.
func synthesizeError(err error) string {
	body, marshalErr := json.Marshal(map[string]any{
		"success": false,
		"error":   err.Error(),
	})
	if marshalErr != nil {
		return `{"success": false, "error": "transport failure"}`
	}
	return string(body)
}
