package sample

// Average returns the truncated arithmetic mean of the batch codes.
// ok is false for an empty batch, which has no average.
func Average(batch []Sample) (avg uint32, ok bool) {
	if len(batch) == 0 {
		return 0, false
	}

	var sum uint64
	for _, s := range batch {
		sum += uint64(s.Code)
	}

	return uint32(sum / uint64(len(batch))), true
}
