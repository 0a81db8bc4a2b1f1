package uid

import "testing"

func TestUUID_Generate(t *testing.T) {
	g := NewUUID()
	a, b := g.Generate(), g.Generate()

	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if !IsUUID(a) || !IsUUID(b) {
		t.Fatalf("expected valid uuids, got %q and %q", a, b)
	}
	if IsUUID("not-a-uuid") {
		t.Fatalf("IsUUID accepted garbage")
	}
}

func TestSnowflake_Generate(t *testing.T) {
	if _, err := NewSnowflake(4096); err == nil {
		t.Fatalf("expected error for out-of-range node")
	}

	g, err := NewSnowflake(7)
	if err != nil {
		t.Fatalf("NewSnowflake() error = %v", err)
	}

	prev := g.Generate()
	for range 100 {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("ids not increasing: %d then %d", prev, next)
		}
		prev = next
	}
}
