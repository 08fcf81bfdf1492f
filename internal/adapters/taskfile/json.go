package taskfile

import (
	"fmt"

	"github.com/go-json-experiment/json"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// decodeJSON rejects duplicate object names, which the json package does
// by default.
func decodeJSON(data []byte) ([]domain.Description, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse JSON task file: %w", err)
	}
	return fromDocument(doc, "tasks")
}
