package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	kind, ok := strings.CutPrefix(subject, SubjectPrefix+".")
	if !ok {
		return nil
	}

	var p EntryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if p.ID == "" {
		return fmt.Errorf("schema validation failed for %s: missing id", subject)
	}
	if p.Kind != kind {
		return fmt.Errorf("schema validation failed for %s: kind %q does not match subject", subject, p.Kind)
	}
	return nil
}
