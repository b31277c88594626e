// Package writer serializes the recovered project document and writes it
// next to the input file.
package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/borisrec/internal/filelock"
	"github.com/harrison/borisrec/internal/models"
)

// Ext is the BORIS project file extension.
const Ext = ".boris"

// ErrExists reports a refusal to overwrite an existing project file
// without --force.
var ErrExists = errors.New("output file already exists")

// OutputPath derives the project file path from the input path: same
// directory, same base name, .boris extension.
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + Ext
}

// Write serializes the project as compact JSON and writes it atomically to
// path. Unless force is set, an existing file at path aborts the write.
func Write(path string, p *models.Project, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, path)
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize project: %w", err)
	}

	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}
