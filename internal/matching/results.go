package matching

import (
	"encoding/json"
	"os"
)

// Results is a ranked sequence as returned to callers.
type Results []MatchResult

// IDs returns subject identifiers in ranked order.
func (r Results) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, res := range r {
		ids = append(ids, res.SubjectID)
	}
	return ids
}

// DumpToTmpFile writes the results as indented JSON to a new temporary file
// and returns its name.
func (r Results) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
