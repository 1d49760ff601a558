package game

import "testing"

func TestPockets_Layout(t *testing.T) {
	seen := make(map[int]bool)
	for i, n := range Pockets {
		if n < 0 || n > 36 {
			t.Errorf("pocket %d holds %d, outside 0-36", i, n)
		}
		if seen[n] {
			t.Errorf("number %d appears twice", n)
		}
		seen[n] = true
	}
	if len(seen) != 37 {
		t.Errorf("got %d distinct numbers, want 37", len(seen))
	}
	if Pockets[0] != 0 || Pockets[1] != 32 || Pockets[36] != 26 {
		t.Errorf("wheel order changed: starts %d,%d ends %d", Pockets[0], Pockets[1], Pockets[36])
	}
}

func TestPocketAt_Coverage(t *testing.T) {
	for i := 0; i < NUM_POCKETS; i++ {
		index, number := PocketAt(PocketCenter(i))
		if index != i {
			t.Errorf("center of pocket %d resolved to index %d", i, index)
		}
		if number != Pockets[i] {
			t.Errorf("center of pocket %d resolved to %d, want %d", i, number, Pockets[i])
		}
		if PocketIndexOf(number) != i {
			t.Errorf("PocketIndexOf(%d) = %d, want %d", number, PocketIndexOf(number), i)
		}
	}

	t.Run("boundaries", func(t *testing.T) {
		if idx, _ := PocketAt(0); idx != 0 {
			t.Errorf("PocketAt(0) index = %d, want 0", idx)
		}
		if idx, _ := PocketAt(359.9999); idx != 36 {
			t.Errorf("PocketAt(359.9999) index = %d, want 36", idx)
		}
		if idx, _ := PocketAt(360); idx != 0 {
			t.Errorf("PocketAt(360) index = %d, want 0", idx)
		}
		if idx, _ := PocketAt(-POCKET_ANGLE / 2); idx != 36 {
			t.Errorf("PocketAt(-half pocket) index = %d, want 36", idx)
		}
	})

	if PocketIndexOf(37) != -1 {
		t.Error("PocketIndexOf(37) should be -1")
	}
}

func TestColorOf(t *testing.T) {
	if ColorOf(0) != ColorGreen {
		t.Errorf("ColorOf(0) = %s, want green", ColorOf(0))
	}

	counts := map[Color]int{}
	for n := 1; n <= 36; n++ {
		c := ColorOf(n)
		if c != ColorRed && c != ColorBlack {
			t.Errorf("ColorOf(%d) = %s, want red or black", n, c)
		}
		counts[c]++
	}
	if counts[ColorRed] != 18 || counts[ColorBlack] != 18 {
		t.Errorf("red/black split = %d/%d, want 18/18", counts[ColorRed], counts[ColorBlack])
	}

	for _, n := range []int{1, 3, 5, 7, 9, 12, 14, 16, 18, 19, 21, 23, 25, 27, 30, 32, 34, 36} {
		if ColorOf(n) != ColorRed {
			t.Errorf("ColorOf(%d) = %s, want red", n, ColorOf(n))
		}
	}
}

func TestPockets_ColorsAlternate(t *testing.T) {
	// around the wheel, non-zero pockets alternate red and black
	for i := 1; i < NUM_POCKETS-1; i++ {
		if ColorOf(Pockets[i]) == ColorOf(Pockets[i+1]) {
			t.Errorf("pockets %d and %d share color %s", Pockets[i], Pockets[i+1], ColorOf(Pockets[i]))
		}
	}
}
