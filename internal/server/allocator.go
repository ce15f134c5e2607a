package server

// assignWordPositions partitions [0, totalPositions) across numPlayers in
// participant order. Each player receives totalPositions/numPlayers positions;
// the first totalPositions%numPlayers players receive one extra. Positions are
// contiguous and increasing, so player i never holds a position below any
// position held by player i-1. When numPlayers exceeds totalPositions the tail
// players receive empty slices.
func assignWordPositions(totalPositions, numPlayers int) [][]int {
	if numPlayers <= 0 {
		return nil
	}
	if totalPositions < 0 {
		totalPositions = 0
	}
	base := totalPositions / numPlayers
	extra := totalPositions % numPlayers

	out := make([][]int, numPlayers)
	next := 0
	for i := 0; i < numPlayers; i++ {
		size := base
		if i < extra {
			size++
		}
		positions := make([]int, 0, size)
		for j := 0; j < size; j++ {
			positions = append(positions, next)
			next++
		}
		out[i] = positions
	}
	return out
}
