package extract

import "testing"

// tagged builds a 2x2 frame whose first sample identifies it.
func tagged(tag uint8) *Frame {
	f := NewFrame(2, 2)
	f.Pix[0] = tag
	return f
}

func ringTags(r *frameRing) []uint8 {
	tags := make([]uint8, r.len())
	for i := range tags {
		tags[i] = r.at(i).Pix[0]
	}
	return tags
}

// TestRingPushAndOrder verifies arrival order is preserved.
func TestRingPushAndOrder(t *testing.T) {
	r := newFrameRing(4)

	for _, tag := range []uint8{1, 2, 3} {
		if evicted := r.push(tagged(tag)); evicted {
			t.Errorf("Unexpected eviction pushing tag %d into non-full ring", tag)
		}
	}

	if r.len() != 3 || r.cap() != 4 {
		t.Fatalf("Expected len 3 cap 4, got len %d cap %d", r.len(), r.cap())
	}
	if r.oldest().Pix[0] != 1 {
		t.Errorf("Expected oldest tag 1, got %d", r.oldest().Pix[0])
	}
	if r.newest().Pix[0] != 3 {
		t.Errorf("Expected newest tag 3, got %d", r.newest().Pix[0])
	}
	for i, want := range []uint8{1, 2, 3} {
		if got := r.at(i).Pix[0]; got != want {
			t.Errorf("at(%d) = tag %d, want %d", i, got, want)
		}
	}
}

// TestRingEvictsOldest verifies FIFO eviction once full.
func TestRingEvictsOldest(t *testing.T) {
	r := newFrameRing(3)

	for _, tag := range []uint8{1, 2, 3} {
		r.push(tagged(tag))
	}
	if evicted := r.push(tagged(4)); !evicted {
		t.Error("Expected eviction pushing into full ring")
	}

	got := ringTags(r)
	want := []uint8{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("After eviction got tags %v, want %v", got, want)
		}
	}

	// Keep rotating; occupancy stays pinned at capacity.
	for tag := uint8(5); tag <= 9; tag++ {
		r.push(tagged(tag))
		if r.len() != 3 {
			t.Fatalf("Expected len 3 after push %d, got %d", tag, r.len())
		}
	}
	if r.oldest().Pix[0] != 7 || r.newest().Pix[0] != 9 {
		t.Errorf("Expected window [7..9], got oldest %d newest %d",
			r.oldest().Pix[0], r.newest().Pix[0])
	}
}

// TestRingEmptyAccessors verifies nil returns on an empty ring.
func TestRingEmptyAccessors(t *testing.T) {
	r := newFrameRing(2)
	if r.oldest() != nil || r.newest() != nil {
		t.Error("Empty ring should return nil frames")
	}
	if r.len() != 0 {
		t.Errorf("Expected len 0, got %d", r.len())
	}
}

// TestRingMinimumCapacity verifies the capacity floor of one slot.
func TestRingMinimumCapacity(t *testing.T) {
	r := newFrameRing(0)
	if r.cap() != 1 {
		t.Fatalf("Expected cap 1, got %d", r.cap())
	}

	r.push(tagged(1))
	if evicted := r.push(tagged(2)); !evicted {
		t.Error("Single-slot ring should evict on every push past the first")
	}
	if r.newest().Pix[0] != 2 || r.oldest().Pix[0] != 2 {
		t.Error("Single-slot ring should hold only the latest frame")
	}
}

// TestRingResizeShrinkKeepsNewest verifies shrink drops the oldest surplus.
func TestRingResizeShrinkKeepsNewest(t *testing.T) {
	r := newFrameRing(8)
	for tag := uint8(1); tag <= 6; tag++ {
		r.push(tagged(tag))
	}

	dropped := r.resize(4)
	if dropped != 2 {
		t.Errorf("Expected 2 dropped, got %d", dropped)
	}
	got := ringTags(r)
	want := []uint8{3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("After shrink got tags %v, want %v", got, want)
		}
	}

	// The shrunk ring keeps normal FIFO behavior.
	r.push(tagged(7))
	if r.oldest().Pix[0] != 4 || r.newest().Pix[0] != 7 {
		t.Errorf("Expected window [4..7], got oldest %d newest %d",
			r.oldest().Pix[0], r.newest().Pix[0])
	}
}

// TestRingResizeGrowKeepsAll verifies growth preserves every entry.
func TestRingResizeGrowKeepsAll(t *testing.T) {
	r := newFrameRing(3)
	for tag := uint8(1); tag <= 5; tag++ {
		r.push(tagged(tag)) // ends as [3 4 5]
	}

	if dropped := r.resize(6); dropped != 0 {
		t.Errorf("Expected 0 dropped on grow, got %d", dropped)
	}
	if r.cap() != 6 || r.len() != 3 {
		t.Fatalf("Expected cap 6 len 3, got cap %d len %d", r.cap(), r.len())
	}

	got := ringTags(r)
	want := []uint8{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("After grow got tags %v, want %v", got, want)
		}
	}
}

// TestRingResizeWrappedState verifies resize handles a wrapped head.
func TestRingResizeWrappedState(t *testing.T) {
	r := newFrameRing(4)
	for tag := uint8(1); tag <= 7; tag++ {
		r.push(tagged(tag)) // head mid-array, window [4 5 6 7]
	}

	r.resize(3)
	got := ringTags(r)
	want := []uint8{5, 6, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("After wrapped shrink got tags %v, want %v", got, want)
		}
	}
}

// TestRingClear verifies clear empties and reports the dropped count.
func TestRingClear(t *testing.T) {
	r := newFrameRing(4)
	for tag := uint8(1); tag <= 3; tag++ {
		r.push(tagged(tag))
	}

	if dropped := r.clear(); dropped != 3 {
		t.Errorf("Expected 3 dropped, got %d", dropped)
	}
	if r.len() != 0 || r.oldest() != nil {
		t.Error("Ring should be empty after clear")
	}
	if r.cap() != 4 {
		t.Errorf("Clear should keep capacity 4, got %d", r.cap())
	}

	r.push(tagged(9))
	if r.oldest().Pix[0] != 9 {
		t.Error("Ring should accept frames again after clear")
	}
}
