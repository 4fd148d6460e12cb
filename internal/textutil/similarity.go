package textutil

import "sync"

// rowPool keeps the two DP rows between calls; Similarity runs once per
// candidate pair during deduplication.
var rowPool = sync.Pool{
	New: func() any {
		buf := make([]int, 0, 256)
		return &buf
	},
}

// Distance is the Levenshtein edit distance between a and b, computed over
// runes with two rows of length len(b)+1.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	bufp := rowPool.Get().(*[]int)
	defer rowPool.Put(bufp)
	need := 2 * (len(rb) + 1)
	if cap(*bufp) < need {
		*bufp = make([]int, need)
	}
	buf := (*bufp)[:need]
	prev, cur := buf[:len(rb)+1], buf[len(rb)+1:]

	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			best := prev[j] + 1
			if ins := cur[j-1] + 1; ins < best {
				best = ins
			}
			if sub := prev[j-1] + cost; sub < best {
				best = sub
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// Similarity returns 1 - distance/maxLen in [0,1]. Two empty strings are
// identical. Inputs are expected to be normalized already.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Distance(a, b))/float64(maxLen)
}
