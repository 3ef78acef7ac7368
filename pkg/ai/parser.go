package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse indicates model output that was present but not
// decodable as the expected structure. It always wraps the decode failure.
var ErrMalformedResponse = errors.New("malformed ai response")

// CleanResponse strips a leading/trailing fenced code-block marker
// (optionally tagged "json") and surrounding whitespace. The model is
// prompted to return pure JSON but may still wrap it in presentation
// artifacts; this tolerates that small known pattern without attempting
// prose extraction.
func CleanResponse(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSpace(text)
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}

// DecodeJSON cleans raw model output and decodes it into out.
// Decode failures surface as ErrMalformedResponse; they are never
// retried here.
func DecodeJSON(raw string, out any) error {
	cleaned := CleanResponse(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
