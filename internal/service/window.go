package service

// WindowContains reports whether hour falls inside the half-open active window
// [start, end). start == end is a zero-length window (never active),
// start > end wraps past midnight, and (0, 24) covers every hour.
func WindowContains(start, end, hour int) bool {
	switch {
	case start == end:
		return false
	case start < end:
		return hour >= start && hour < end
	default:
		return hour >= start || hour < end
	}
}
