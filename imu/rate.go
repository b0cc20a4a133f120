package imu

// MatchRate maps a requested sample rate onto a rate table and returns the index of the
// chosen entry. table starts with the 0 boundary and ends with RateEnd.
//
// Rates round up to the next supported entry and clamp at the fastest one; they never round
// down. Zero and negative requests select index 0.
func MatchRate(requested int, table []int) int {
	if len(table) == 0 || requested <= table[0] {
		return 0
	}
	i := 0
	for i+1 < len(table) && table[i+1] != RateEnd {
		if requested > table[i] && requested <= table[i+1] {
			return i + 1
		}
		i++
	}
	return i
}
