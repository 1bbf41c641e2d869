package detect

// boolWindow is a fixed-capacity FIFO of booleans with sliding-window
// semantics: pushing onto a full window evicts the oldest entry.
type boolWindow struct {
	slots []bool
	head  int
	size  int
	trues int
}

func newBoolWindow(capacity int) *boolWindow {
	return &boolWindow{slots: make([]bool, capacity)}
}

// Push appends v, evicting the oldest entry when the window is full.
func (w *boolWindow) Push(v bool) {
	if w.size == len(w.slots) {
		if w.slots[w.head] {
			w.trues--
		}
	} else {
		w.size++
	}
	w.slots[w.head] = v
	if v {
		w.trues++
	}
	w.head = (w.head + 1) % len(w.slots)
}

// TrueCount returns the number of true entries currently in the window.
func (w *boolWindow) TrueCount() int {
	return w.trues
}

// Len returns the number of entries currently in the window.
func (w *boolWindow) Len() int {
	return w.size
}
