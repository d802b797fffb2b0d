package extract

// frameRing is a fixed-capacity FIFO of frames backed by a preallocated
// slot array with a head index and an occupancy count. Pushing into a full
// ring evicts the oldest entry. push, oldest, newest and at are O(1);
// resize rebuilds the slot array. The ring does not lock: it shares the
// Extractor's single-caller contract.
type frameRing struct {
	slots []*Frame
	head  int // index of the oldest entry
	count int
}

// newFrameRing creates an empty ring. Capacity is never below 1.
func newFrameRing(capacity int) *frameRing {
	if capacity < 1 {
		capacity = 1
	}
	return &frameRing{slots: make([]*Frame, capacity)}
}

// push appends f at the tail, evicting the oldest entry when the ring is
// full. It reports whether an eviction happened.
func (r *frameRing) push(f *Frame) bool {
	if r.count == len(r.slots) {
		r.slots[r.head] = f
		r.head = (r.head + 1) % len(r.slots)
		return true
	}
	r.slots[(r.head+r.count)%len(r.slots)] = f
	r.count++
	return false
}

// oldest returns the least recently pushed frame, or nil when empty.
func (r *frameRing) oldest() *Frame {
	if r.count == 0 {
		return nil
	}
	return r.slots[r.head]
}

// newest returns the most recently pushed frame, or nil when empty.
func (r *frameRing) newest() *Frame {
	if r.count == 0 {
		return nil
	}
	return r.slots[(r.head+r.count-1)%len(r.slots)]
}

// at returns the i-th oldest entry; i must be in [0, len()).
func (r *frameRing) at(i int) *Frame {
	return r.slots[(r.head+i)%len(r.slots)]
}

func (r *frameRing) len() int { return r.count }

func (r *frameRing) cap() int { return len(r.slots) }

// clear drops every entry, releasing the stored frames, and returns the
// number dropped.
func (r *frameRing) clear() int {
	dropped := r.count
	for i := range r.slots {
		r.slots[i] = nil
	}
	r.head = 0
	r.count = 0
	return dropped
}

// resize rebuilds the ring at the given capacity, keeping entries in
// arrival order. Shrinking below the current occupancy drops the oldest
// surplus, as if the ring had always had the smaller capacity. It returns
// the number of entries dropped.
func (r *frameRing) resize(capacity int) int {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(r.slots) {
		return 0
	}
	slots := make([]*Frame, capacity)
	dropped := 0
	if r.count > capacity {
		dropped = r.count - capacity
	}
	kept := r.count - dropped
	for i := 0; i < kept; i++ {
		slots[i] = r.at(dropped + i)
	}
	r.slots = slots
	r.head = 0
	r.count = kept
	return dropped
}
