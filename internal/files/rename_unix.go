//go:build !windows

package files

import "os"

// replaceFile moves tmp over dst; rename(2) is atomic within a directory.
func replaceFile(tmp, dst string) error {
	return os.Rename(tmp, dst)
}
