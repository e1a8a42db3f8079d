package store

import (
	"encoding/json"
	"fmt"
)

// mergeFields applies partial on top of the top-level fields of doc.
func mergeFields(doc []byte, partial map[string]any) ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &fields); err != nil {
			return nil, fmt.Errorf("decoding stored document: %w", err)
		}
	}
	for k, v := range partial {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding field %s: %w", k, err)
		}
		fields[k] = raw
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding merged document: %w", err)
	}
	return out, nil
}
