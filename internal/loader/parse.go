package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidModel is returned for model files that cannot be turned into a
// leaf or an internal node.
var ErrInvalidModel = errors.New("invalid model file")

// ErrNoRoot is returned when the root model cannot be determined.
var ErrNoRoot = errors.New("no usable root model")

// fileModel is the declarative shape of one model file.
type fileModel struct {
	Name      string   `mapstructure:"name"`
	Algorithm *string  `mapstructure:"algorithm"`
	Children  []string `mapstructure:"children"`
}

// parseFile decodes a .json, .yaml or .yml model file. A missing name falls
// back to the file stem.
func parseFile(filePath string, data []byte) (*fileModel, error) {
	var raw map[string]any
	switch strings.ToLower(path.Ext(filePath)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidModel, filePath, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidModel, filePath, err)
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s: empty document", ErrInvalidModel, filePath)
	}

	var fm fileModel
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fm,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("loader: decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidModel, filePath, err)
	}

	// "children: []" declares an empty internal node; keep it distinct from
	// an absent list.
	if c, ok := raw["children"]; ok && c != nil && fm.Children == nil {
		fm.Children = []string{}
	}

	fm.Name = strings.TrimSpace(fm.Name)
	if fm.Name == "" {
		base := path.Base(filePath)
		fm.Name = strings.TrimSuffix(base, path.Ext(base))
	}
	return &fm, nil
}
