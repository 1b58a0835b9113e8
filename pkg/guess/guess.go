// Package guess derives a best-effort artist/title pair from a file path
// when no usable tag metadata is available.
package guess

import (
	"path/filepath"
	"strings"
)

// FromPath guesses artist and title from a song's path. It tries, in order:
// "<artist> - <title>.<ext>", "<artist>-<title>.<ext>", and finally the base
// name as title with the parent directory as artist. Empty strings mean the
// field could not be derived.
func FromPath(path string) (artist, title string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "" || base == "." {
		return "", ""
	}

	for _, sep := range []string{" - ", "-"} {
		parts := strings.SplitN(base, sep, 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1]
		}
	}

	parent := filepath.Base(filepath.Dir(path))
	if parent == "." || parent == string(filepath.Separator) {
		parent = ""
	}
	return parent, base
}
