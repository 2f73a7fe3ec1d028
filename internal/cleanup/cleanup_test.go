package cleanup

import (
	"errors"
	"strings"
	"testing"
)

func TestRunAll_LIFOAndJoin(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	Register("first", func() error { order = append(order, "first"); return nil })
	Register("nil", nil)
	Register("second", func() error { order = append(order, "second"); return boom })
	Register("third", func() error { order = append(order, "third"); return nil })

	if Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", Pending())
	}
	err := RunAll()
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "second: boom") {
		t.Fatalf("error should name the hook: %v", err)
	}
	if strings.Join(order, ",") != "third,second,first" {
		t.Fatalf("order = %v", order)
	}
	if Pending() != 0 || RunAll() != nil {
		t.Fatalf("hooks should be cleared after RunAll")
	}
}
