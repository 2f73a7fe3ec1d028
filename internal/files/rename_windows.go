//go:build windows

package files

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// replaceFile moves tmp over dst, replacing an existing settings file and
// flushing before it returns.
func replaceFile(tmp, dst string) error {
	from, err := windows.UTF16PtrFromString(tmp)
	if err != nil {
		return fmt.Errorf("temp path %q: %w", tmp, err)
	}
	to, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return fmt.Errorf("destination path %q: %w", dst, err)
	}
	return windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}
