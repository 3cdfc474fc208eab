package preview

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON writes the laid out pages as JSON for inspection.
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
