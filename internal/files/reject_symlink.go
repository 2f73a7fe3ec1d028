package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SymlinkError reports a link on the way to a file transpop would write.
type SymlinkError struct {
	Path string
	At   string
	Kind string
}

func (e *SymlinkError) Error() string {
	return fmt.Sprintf("refusing to write %s: %s at %s", e.Path, e.Kind, e.At)
}

// RejectSymlinkPath fails when path, or any existing directory above it, is a
// symlink or a reparse point. The settings file and the log file are only
// written through real paths.
func RejectSymlinkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("file path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	for _, p := range ancestry(abs) {
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspect %s: %w", p, err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return &SymlinkError{Path: abs, At: p, Kind: "symlink"}
		}
		reparse, err := isReparsePoint(p)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", p, err)
		}
		if reparse {
			return &SymlinkError{Path: abs, At: p, Kind: "reparse point"}
		}
	}
	return nil
}

// ancestry lists abs and every parent below the volume root, outermost first.
func ancestry(abs string) []string {
	var out []string
	for p := abs; ; {
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		out = append(out, p)
		p = parent
	}
	slices.Reverse(out)
	return out
}
