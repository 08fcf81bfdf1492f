package taskfile

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// decodeTOML reads a document made of [[task]] tables.
func decodeTOML(data []byte) ([]domain.Description, error) {
	doc := make(map[string]any)
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parse TOML task file: %w", err)
	}
	for _, key := range md.Keys() {
		if top := key[0]; top != "task" {
			return nil, fmt.Errorf("parse TOML task file: unexpected key %q", key.String())
		}
	}
	if _, ok := doc["task"]; !ok {
		return nil, nil
	}
	return fromDocument(doc, "task")
}
