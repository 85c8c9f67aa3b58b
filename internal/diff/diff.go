// Package diff compares header tables before and after a script runs.
package diff

import (
	"strings"

	"github.com/sadopc/spoonemu/internal/message"
)

// Op is the kind of change a line or header went through.
type Op int

const (
	Same Op = iota
	Added
	Removed
	Modified
)

func (o Op) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "same"
	}
}

// Line is one line of a line diff.
type Line struct {
	Op      Op
	Content string
	OldLine int // 1-based, 0 when added
	NewLine int // 1-based, 0 when removed
}

// Change is one header of a header diff. Old is empty for Added, New for Removed.
type Change struct {
	Op   Op     `json:"op"`
	Name string `json:"name"`
	Old  string `json:"old,omitempty"`
	New  string `json:"new,omitempty"`
}

// Lines computes a Myers diff between two line slices.
func Lines(a, b []string) []Line {
	edits := myers(len(a), len(b), func(i, j int) bool { return a[i] == b[j] })
	out := make([]Line, 0, len(edits))
	for _, e := range edits {
		switch e.op {
		case Added:
			out = append(out, Line{Op: Added, Content: b[e.b], NewLine: e.b + 1})
		case Removed:
			out = append(out, Line{Op: Removed, Content: a[e.a], OldLine: e.a + 1})
		default:
			out = append(out, Line{Op: Same, Content: a[e.a], OldLine: e.a + 1, NewLine: e.b + 1})
		}
	}
	return out
}

// Headers diffs two header tables entry by entry. Within each run of
// changes, a removed entry and an added entry with the same name (any case)
// are reported as one Modified change, which is what RewriteHeader produces.
func Headers(before, after message.Headers) []Change {
	edits := myers(len(before), len(after), func(i, j int) bool { return before[i] == after[j] })

	var out []Change
	for i := 0; i < len(edits); {
		if edits[i].op == Same {
			h := before[edits[i].a]
			out = append(out, Change{Op: Same, Name: h.Name, Old: h.Value, New: h.Value})
			i++
			continue
		}

		var removed, added []message.Header
		for ; i < len(edits) && edits[i].op != Same; i++ {
			if edits[i].op == Removed {
				removed = append(removed, before[edits[i].a])
			} else {
				added = append(added, after[edits[i].b])
			}
		}
		out = append(out, hunk(removed, added)...)
	}
	return out
}

func hunk(removed, added []message.Header) []Change {
	paired := make([]bool, len(added))
	var out []Change
	for _, r := range removed {
		match := -1
		for j, a := range added {
			if !paired[j] && strings.EqualFold(r.Name, a.Name) {
				match = j
				break
			}
		}
		if match < 0 {
			out = append(out, Change{Op: Removed, Name: r.Name, Old: r.Value})
			continue
		}
		paired[match] = true
		out = append(out, Change{Op: Modified, Name: added[match].Name, Old: r.Value, New: added[match].Value})
	}
	for j, a := range added {
		if !paired[j] {
			out = append(out, Change{Op: Added, Name: a.Name, New: a.Value})
		}
	}
	return out
}

// Changed reports whether any change is not Same.
func Changed(changes []Change) bool {
	for _, c := range changes {
		if c.Op != Same {
			return true
		}
	}
	return false
}

type edit struct {
	op   Op
	a, b int
}

// myers returns the shortest edit script turning a sequence of length n into
// one of length m. eq compares a[i] with b[j].
func myers(n, m int, eq func(i, j int) bool) []edit {
	if n == 0 && m == 0 {
		return nil
	}

	max := n + m
	offset := max
	v := make([]int, 2*max+2)
	var trace [][]int

search:
	for d := 0; d <= max; d++ {
		trace = append(trace, append([]int(nil), v...))
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && eq(x, y) {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	var rev []edit
	x, y := n, m
	for d := len(trace) - 1; d >= 0; d-- {
		tv := trace[d]
		k := x - y
		var prevK int
		if k == -d || (k != d && tv[offset+k-1] < tv[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := tv[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, edit{op: Same, a: x, b: y})
		}
		if d > 0 {
			if x == prevX {
				y--
				rev = append(rev, edit{op: Added, a: -1, b: y})
			} else {
				x--
				rev = append(rev, edit{op: Removed, a: x, b: -1})
			}
		}
		x, y = prevX, prevY
	}

	edits := make([]edit, len(rev))
	for i := range rev {
		edits[i] = rev[len(rev)-1-i]
	}
	return edits
}
