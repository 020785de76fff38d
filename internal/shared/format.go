package shared

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes v, optionally indented for human-facing output.
func MarshalJSON(v any, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// FormatDuration renders track time in milliseconds as m:ss.
func FormatDuration(millis int64) string {
	if millis <= 0 {
		return "0:00"
	}
	total := millis / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
