package document

import (
	"encoding/json"
	"strings"
)

// DecodeMetadata parses the stored JSON metadata column. Empty or malformed
// input yields an empty map.
func DecodeMetadata(raw string) map[string]any {
	meta := map[string]any{}
	if len(strings.TrimSpace(raw)) == 0 {
		return meta
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta == nil {
		return map[string]any{}
	}
	return meta
}

func EncodeMetadata(meta map[string]any) (string, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	bs, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
