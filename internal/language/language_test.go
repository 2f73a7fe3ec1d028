package language

import "testing"

func TestConfigSwap(t *testing.T) {
	cfg := Config{
		Source: Descriptor{Code: "en", Label: "English"},
		Target: Descriptor{Code: "vi", Label: "Tiếng Việt"},
	}
	swapped := cfg.Swap()
	if swapped.Source != cfg.Target || swapped.Target != cfg.Source {
		t.Fatalf("Swap() = %+v", swapped)
	}
	if swapped.Swap() != cfg {
		t.Fatalf("double swap should restore the pair")
	}

	// Arbitrary descriptors are carried verbatim.
	odd := Config{Source: Descriptor{Label: "only label"}, Target: Descriptor{Code: "xx"}}
	if got := odd.Swap(); got.Source.Code != "xx" || got.Target.Label != "only label" {
		t.Fatalf("Swap() altered descriptors: %+v", got)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"en", "en", true},
		{" vi ", "vi", true},
		{"zh", "zh-Hans", true},
		{"Vietnamese", "vi", true},
		{"tlh", "", false},
	}
	for _, tt := range tests {
		got, ok := Get(tt.in)
		if ok != tt.ok || got.Code != tt.want {
			t.Errorf("Get(%q) = (%+v, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCounterpart(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Counterpart("en"); got != Vietnamese {
		t.Fatalf("Counterpart(en) = %+v", got)
	}
	if got := cfg.Counterpart("vi"); got != English {
		t.Fatalf("Counterpart(vi) = %+v", got)
	}
	if got := cfg.Counterpart("fr"); got != Vietnamese {
		t.Fatalf("Counterpart(fr) = %+v", got)
	}
}

func TestSupportedSorted(t *testing.T) {
	list := Supported()
	if len(list) != len(Languages) {
		t.Fatalf("Supported() returned %d entries", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Code > list[i].Code {
			t.Fatalf("not sorted at %d: %v", i, list)
		}
	}
}
