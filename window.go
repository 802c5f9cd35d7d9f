package sr

// seqDistance returns how far ahead of from the sequence number to is,
// walking forward through the sequence space. The result is always in
// [0, seqSpace).
func seqDistance(from, to int32, seqSpace int) int32 {
	return (to - from + int32(seqSpace)) % int32(seqSpace)
}

func incSeq(seq int32, seqSpace int) int32 {
	return (seq + 1) % int32(seqSpace)
}

func decSeq(seq int32, seqSpace int) int32 {
	return (seq - 1 + int32(seqSpace)) % int32(seqSpace)
}

// window maps window-relative slot offsets onto a fixed circular buffer
// and classifies sequence numbers against the window base. Both endpoint
// buffers share this arithmetic so the modulo handling exists exactly
// once.
type window struct {
	size     int
	seqSpace int
	head     int // physical index of logical offset 0
}

func newWindow(size, seqSpace int) window {
	return window{size: size, seqSpace: seqSpace}
}

// phys translates a logical offset (0 = oldest/next expected) into the
// physical buffer index.
func (w *window) phys(offset int) int {
	return (w.head + offset) % w.size
}

// advance moves the window base forward by one slot.
func (w *window) advance() {
	w.head = (w.head + 1) % w.size
}

func (w *window) reset() {
	w.head = 0
}

// classify places seq relative to a window of w.size sequence numbers
// anchored at base. With seqSpace >= 2*size the three regions are
// disjoint: offsets [0, size) are in window, the last size offsets before
// the base are below it (already slid past), everything between is above.
func (w *window) classify(base, seq int32) seqClass {
	dist := seqDistance(base, seq, w.seqSpace)
	switch {
	case dist < int32(w.size):
		return inWindow
	case dist >= int32(w.seqSpace-w.size):
		return belowWindow
	default:
		return aboveWindow
	}
}
