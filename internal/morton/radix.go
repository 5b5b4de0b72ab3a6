package morton

// Pair associates a 30-bit Morton code with the index of the leaf (zone) it
// was computed for. Leaf is the tie-break carrier: LSD radix sort is stable,
// so leaves with equal codes retain their relative (insertion) order, as
// required by spec §4.2.
type Pair struct {
	Code uint32
	Leaf int32
}

const (
	radixBits    = 8
	radixBuckets = 1 << radixBits
	radixPasses  = 4 // 4 * 8 = 32 bits, covering the 30-bit code with room to spare.
)

// Sorter holds the scratch buffers reused across builds so that a rebuild
// performs no heap allocation beyond the first time it grows to a new n.
type Sorter struct {
	scratch []Pair
	counts  [radixBuckets]int32
}

// Sort orders pairs ascending by Code in place using four passes of 8-bit
// LSD radix sort, O(n) time and O(n) scratch space reused across calls.
func (s *Sorter) Sort(pairs []Pair) {
	n := len(pairs)
	if n < 2 {
		return
	}
	if cap(s.scratch) < n {
		s.scratch = make([]Pair, n)
	}
	scratch := s.scratch[:n]
	src, dst := pairs, scratch
	for pass := 0; pass < radixPasses; pass++ {
		shift := uint(pass * radixBits)
		for i := range s.counts {
			s.counts[i] = 0
		}
		for i := range src {
			b := (src[i].Code >> shift) & (radixBuckets - 1)
			s.counts[b]++
		}
		var total int32
		for i := range s.counts {
			c := s.counts[i]
			s.counts[i] = total
			total += c
		}
		for i := range src {
			b := (src[i].Code >> shift) & (radixBuckets - 1)
			dst[s.counts[b]] = src[i]
			s.counts[b]++
		}
		src, dst = dst, src
	}
	// After an even number of passes, src aliases the original backing array
	// of pairs; if it doesn't (odd pass count), copy back.
	if &src[0] != &pairs[0] {
		copy(pairs, src)
	}
}
