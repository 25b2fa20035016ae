package chunker

// window is a byte range of a segment produced by size refinement
type window struct {
	start   int
	end     int
	overlap int // bytes at the start repeated from the previous window
}

// splitWindows splits text into windows of at most target characters with
// overlap characters shared between neighbours. Text within target yields a
// single window. Windows end on rune boundaries and prefer a newline, then a
// space, within the last quarter of the window.
func splitWindows(text string, target, overlap int) []window {
	// offs[i] is the byte offset of rune i; offs[n] == len(text)
	offs := make([]int, 0, len(text)+1)
	for i := range text {
		offs = append(offs, i)
	}
	n := len(offs)
	offs = append(offs, len(text))

	if n <= target {
		return []window{{start: 0, end: len(text)}}
	}

	step := target - overlap
	if step < 1 {
		step = 1
	}
	windows := make([]window, 0, n/step+1)
	pos, prevEnd := 0, 0
	for {
		end := pos + target
		if end >= n {
			end = n
		} else if b := breakPoint(text, offs, pos+target*3/4, end); b > pos {
			end = b
		}

		w := window{start: offs[pos], end: offs[end]}
		if pos < prevEnd {
			w.overlap = offs[prevEnd] - offs[pos]
		}
		windows = append(windows, w)

		if end == n {
			return windows
		}
		next := end - overlap
		if next <= pos {
			next = pos + 1
		}
		pos, prevEnd = next, end
	}
}

// breakPoint returns the rune index just after the last newline in runes
// [lo, hi), else after the last space, else -1
func breakPoint(text string, offs []int, lo, hi int) int {
	space := -1
	for r := hi - 1; r >= lo; r-- {
		switch text[offs[r]] {
		case '\n':
			return r + 1
		case ' ', '\t':
			if space < 0 {
				space = r + 1
			}
		}
	}
	return space
}
