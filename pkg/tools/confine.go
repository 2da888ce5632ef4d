package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// confine resolves rel against root and rejects any result that escapes
// root, whether via ".." segments or an absolute path pointing elsewhere.
func confine(root, rel string) (string, error) {
	if rel == "" {
		rel = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}

	var candidate string
	if filepath.IsAbs(rel) {
		candidate = filepath.Clean(rel)
	} else {
		candidate = filepath.Clean(filepath.Join(absRoot, rel))
	}

	if candidate != absRoot && !strings.HasPrefix(candidate, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the allowed working directory", rel)
	}
	return candidate, nil
}
