package workspace

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// stampTool identifies the writer of a stamp file.
const stampTool = "vulx"

// Stamp records how the workspace was last provisioned.
type Stamp struct {
	// Tool is always "vulx".
	Tool string `yaml:"tool"`

	// Version is the vulx build that wrote the stamp.
	Version string `yaml:"version"`

	// AssetSource is "embedded" or the package assets directory.
	AssetSource string `yaml:"asset_source"`

	// DevMode reports whether the .dev template variants were used.
	DevMode bool `yaml:"dev_mode"`

	// Files lists the copied files relative to the cache directory, sorted,
	// with forward slashes.
	Files []string `yaml:"files"`
}

// ReadStamp loads the stamp at path. A missing file is not an error: it
// returns (nil, nil), meaning the workspace was never provisioned.
func ReadStamp(path string) (*Stamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read provisioning stamp: %w", err)
	}

	var s Stamp
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse provisioning stamp %s: %w", path, err)
	}
	return &s, nil
}

// WriteStamp serializes s to path, replacing any previous stamp.
func WriteStamp(path string, s Stamp) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode provisioning stamp: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write provisioning stamp: %w", err)
	}
	return nil
}
