package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// DecodeJSON unmarshals a model reply into target. Replies wrapped in a
// code fence or surrounded by prose are trimmed to the first JSON value.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	err := json.Unmarshal([]byte(trimmed), target)
	if err == nil {
		return nil
	}
	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload: %s)", err, snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload: %s)", err, snippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	body := stripCodeFence(content)
	if body == "" || body[0] == '{' || body[0] == '[' {
		return body
	}
	// Whichever value opens first wins so an array of objects is kept whole.
	opener, closer := "{", "}"
	obj, arr := strings.Index(body, "{"), strings.Index(body, "[")
	if arr >= 0 && (obj < 0 || arr < obj) {
		opener, closer = "[", "]"
	}
	start := strings.Index(body, opener)
	end := strings.LastIndex(body, closer)
	if start < 0 || end <= start {
		return body
	}
	return strings.TrimSpace(body[start : end+1])
}

func stripCodeFence(content string) string {
	body, ok := strings.CutPrefix(strings.TrimSpace(content), "```")
	if !ok {
		return strings.TrimSpace(content)
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// snippet flattens whitespace and caps content at 160 runes for error text.
func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > 160 {
		return string(runes[:160]) + "..."
	}
	return clean
}
