package check

// List is the ordered sequence of results produced by one run.
// Order reflects execution order and is preserved for reporting.
type List []Result

// Add appends results in order.
func (l *List) Add(results ...Result) {
	*l = append(*l, results...)
}

// Passed returns the number of passing results.
func (l List) Passed() int {
	n := 0
	for _, r := range l {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the failing results in their original order.
func (l List) Failed() List {
	var failed List
	for _, r := range l {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// OK returns true if no result failed.
func (l List) OK() bool {
	return len(l.Failed()) == 0
}

// Concat joins lists without modifying any of them.
func Concat(lists ...List) List {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make(List, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
