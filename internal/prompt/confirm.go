// Package prompt asks the user yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stdout,
		IsInteractive: func() bool {
			info, err := os.Stdin.Stat()
			if err != nil {
				return false
			}
			return (info.Mode() & os.ModeCharDevice) != 0
		},
	}
}

// Confirm asks question and reports whether the answer was y or yes.
// force skips the question; a non-interactive stdin is an error.
func (c Confirmer) Confirm(question string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if c.IsInteractive == nil || !c.IsInteractive() {
		return false, fmt.Errorf("non-interactive stdin: use --yes to confirm")
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s (y/n): ", question)
	}
	reader := bufio.NewReader(c.In)
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
