package board

import (
	"testing"
)

func TestNewMove(t *testing.T) {
	tests := []struct {
		coords []int
		want   string
	}{
		{[]int{2, 2}, "2-2"},
		{[]int{0}, "0"},
		{[]int{1, 0, 3}, "1-0-3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := NewMove(tt.coords...).String(); got != tt.want {
				t.Errorf("NewMove(%v) = %s, want %s", tt.coords, got, tt.want)
			}
		})
	}
}

func TestParseMove(t *testing.T) {
	m, err := ParseMove("1-2")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	c := m.Coordinates()
	if len(c) != 2 || c[0] != 1 || c[1] != 2 {
		t.Errorf("ParseMove(1-2) = %v, want [1 2]", c)
	}

	for _, bad := range []string{"", "a-1", "1--2", "1-"} {
		if _, err := ParseMove(bad); err == nil {
			t.Errorf("ParseMove(%q) succeeded, want error", bad)
		}
	}
}

func TestParseMoves(t *testing.T) {
	moves, err := ParseMoves("0-0, 1-1,2-0")
	if err != nil {
		t.Fatalf("ParseMoves: %v", err)
	}
	if len(moves) != 3 || moves[2].String() != "2-0" {
		t.Errorf("ParseMoves = %v", moves)
	}
}

func TestMoveImmutable(t *testing.T) {
	coords := []int{1, 2}
	m := NewMove(coords...)
	coords[0] = 9
	m.Coordinates()[1] = 9
	if m.String() != "1-2" || m.Coordinates()[0] != 1 || m.Coordinates()[1] != 2 {
		t.Errorf("move mutated: %s %v", m, m.Coordinates())
	}
}
