package taskfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

func decodeYAML(data []byte) ([]domain.Description, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML task file: %w", err)
	}
	return fromDocument(doc, "tasks")
}
