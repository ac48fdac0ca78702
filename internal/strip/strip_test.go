package strip

import (
	"testing"

	"pkt.systems/tabsession/schema"
)

func TestLayoutPlacesContainersWithSeparators(t *testing.T) {
	bounds := Layout([]schema.TabHeader{"Home", "Docs", "Settings"}, 0)
	want := []schema.Bounds{{X: 0, Width: 6}, {X: 7, Width: 6}, {X: 14, Width: 10}}
	if len(bounds) != len(want) {
		t.Fatalf("expected %d bounds, got %d", len(want), len(bounds))
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Fatalf("bounds %d: expected %+v, got %+v", i, want[i], bounds[i])
		}
	}
	if Width(bounds) != 24 {
		t.Fatalf("expected total width 24, got %d", Width(bounds))
	}
}

func TestLayoutMeasuresWideRunes(t *testing.T) {
	bounds := Layout([]schema.TabHeader{"日本"}, 0)
	if bounds[0].Width != 6 {
		t.Fatalf("expected wide label width 6, got %d", bounds[0].Width)
	}
}

func TestLabelTruncates(t *testing.T) {
	label := Label("Configuration", 6)
	if label != " Confi… " {
		t.Fatalf("unexpected label %q", label)
	}
	if Label("Docs", 6) != " Docs " {
		t.Fatalf("short labels must not be truncated")
	}
}

func TestHitTest(t *testing.T) {
	bounds := Layout([]schema.TabHeader{"A", "B"}, 0)
	cases := map[int]int{0: 0, 2: 0, 3: -1, 4: 1, 6: 1, 7: -1, -1: -1}
	for x, want := range cases {
		if got := HitTest(bounds, x); got != want {
			t.Fatalf("x=%d: expected %d, got %d", x, want, got)
		}
	}
}
