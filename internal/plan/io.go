package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

// Format is a plan file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file extension. Anything that is not
// .json is treated as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses a plan in the given format.
func Decode(data []byte, format Format) (*Plan, error) {
	var p Plan
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &p)
	default:
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodePlanUnmarshal, fmt.Sprintf("decode %s plan", format), err)
	}
	return &p, nil
}

// Encode renders a plan in the given format.
func Encode(p *Plan, format Format) ([]byte, error) {
	var data []byte
	var err error
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(p, "", "  ")
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(p); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	}
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodePlanMarshal, fmt.Sprintf("encode %s plan", format), err)
	}
	return data, nil
}

// Load reads a plan from a YAML or JSON file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, berrors.NewPlanNotFoundError(path)
		}
		return nil, berrors.Wrap(berrors.ErrCodeFileReadFailed, "read plan file", err)
	}
	return Decode(data, FormatFor(path))
}

// Save writes a plan to path, choosing the encoding from the extension.
func Save(p *Plan, path string) error {
	data, err := Encode(p, FormatFor(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return berrors.Wrap(berrors.ErrCodeFileWriteFailed, "write plan file", err)
	}
	return nil
}
