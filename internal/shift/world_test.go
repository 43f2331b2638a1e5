package shift

import "testing"

func TestWorldState_CyclicOrdering(t *testing.T) {
	if got := len(AllWorlds()); got != WorldCount || WorldCount != 3 {
		t.Fatalf("cycle length = %d", got)
	}
	for _, w := range AllWorlds() {
		if w.Next().Prev() != w {
			t.Fatalf("%v: Prev(Next()) = %v", w, w.Next().Prev())
		}
		if w.Prev().Next() != w {
			t.Fatalf("%v: Next(Prev()) = %v", w, w.Prev().Next())
		}
		if w.Step(WorldCount) != w || w.Step(-WorldCount) != w {
			t.Fatalf("%v: full turn did not return home", w)
		}
	}
	if Chaos.Next() != Light || Light.Prev() != Chaos {
		t.Fatal("cycle does not wrap")
	}
	if Light.Step(-4) != Chaos {
		t.Fatalf("Light.Step(-4) = %v", Light.Step(-4))
	}
}

func TestParseWorld(t *testing.T) {
	tests := []struct {
		in   string
		want WorldState
		ok   bool
	}{
		{"Light", Light, true},
		{" shadow ", Shadow, true},
		{"CHAOS", Chaos, true},
		{"dream", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, err := ParseWorld(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("ParseWorld(%q) err = %v", tc.in, err)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("ParseWorld(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWorldState_TextRoundTrip(t *testing.T) {
	var w WorldState
	if err := w.UnmarshalText([]byte("shadow")); err != nil || w != Shadow {
		t.Fatalf("UnmarshalText = %v, %v", w, err)
	}
	b, err := Chaos.MarshalText()
	if err != nil || string(b) != "Chaos" {
		t.Fatalf("MarshalText = %q, %v", b, err)
	}
	if _, err := WorldState(9).MarshalText(); err == nil {
		t.Fatal("invalid world marshalled")
	}
}
