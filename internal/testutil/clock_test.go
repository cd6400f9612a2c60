package testutil

import (
	"testing"
	"time"
)

func TestStubClock(t *testing.T) {
	c := NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.FixedZone("CET", 3600)))
	want := time.Date(2024, 1, 15, 9, 30, 0, 123000000, time.UTC)
	if !c.Now().Equal(want) || c.Now().Location() != time.UTC {
		t.Fatalf("Now() = %v, want %v", c.Now(), want)
	}
	if c.Millis() != want.UnixMilli() {
		t.Errorf("Millis() = %d, want %d", c.Millis(), want.UnixMilli())
	}

	if got := c.Advance(1500 * time.Microsecond); !got.Equal(want.Add(time.Millisecond)) {
		t.Errorf("Advance() = %v, want %v", got, want.Add(time.Millisecond))
	}

	c.Set(want.Add(time.Hour))
	if !c.Now().Equal(want.Add(time.Hour)) {
		t.Errorf("Now() after Set = %v", c.Now())
	}
}

func TestStubIDGenerator(t *testing.T) {
	g := NewStubIDGenerator()
	if g.Issued() != 0 {
		t.Fatalf("Issued() = %d, want 0", g.Issued())
	}
	for _, want := range []string{"id-1", "id-2", "id-3"} {
		if got := g.New(); got != want {
			t.Errorf("New() = %q, want %q", got, want)
		}
	}
	if g.Issued() != 3 {
		t.Errorf("Issued() = %d, want 3", g.Issued())
	}
}
