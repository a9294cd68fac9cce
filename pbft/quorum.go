package pbft

// Quorum returns the number of matching votes a phase needs among n nodes,
// floor(2n/3) + 1.
func Quorum(n int) int {
	return 2*n/3 + 1
}

// MaxFaulty returns the number of faulty nodes a set of n nodes tolerates.
func MaxFaulty(n int) int {
	if n < 1 {
		return 0
	}
	return (n - 1) / 3
}
