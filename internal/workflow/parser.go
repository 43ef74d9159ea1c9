package workflow

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	macrowerrors "github.com/alexisbeaulieu97/macrow/pkg/errors"
)

// Load reads a persisted workflow from disk, validates it, and returns the
// in-memory tree. The file's top-level value is an ordered list of step
// records.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, macrowerrors.NewFormatFileError(path, err)
	}

	var steps []Step
	if err := yaml.Unmarshal(data, &steps); err != nil {
		var formatErr *macrowerrors.FormatError
		if errors.As(err, &formatErr) {
			formatErr.Path = path
			return nil, formatErr
		}
		return nil, macrowerrors.NewFormatFileError(path, err)
	}

	wf := &Workflow{Steps: steps}
	if err := Validate(wf); err != nil {
		return nil, err
	}

	return wf, nil
}

// Save validates and writes a workflow to disk, creating parent directories
// as needed. Serialization is total: every constructible workflow can be
// written and loaded back into an equal tree.
func Save(path string, wf *Workflow) error {
	if err := Validate(wf); err != nil {
		return err
	}

	data, err := yaml.Marshal(wf.Steps)
	if err != nil {
		return macrowerrors.NewFormatFileError(path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0o644)
}
