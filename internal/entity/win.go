package entity

// WinLength returns how many marks in a row win on a board of the given size.
func WinLength(size int) int {
	switch {
	case size <= 5:
		return 3
	case size <= 7:
		return 4
	default:
		return 6
	}
}

// DetectWinner scans rows, columns, main diagonals and anti-diagonals, in that order,
// and returns the first symbol with WinLength(size) consecutive marks.
// A board whose dimensions do not match size has no winner.
func DetectWinner(board Board, size int) Symbol {
	if !fits(board, size) {
		return EmptyCell
	}

	winLength := WinLength(size)

	// rows
	for i := 0; i < size; i++ {
		for j := 0; j <= size-winLength; j++ {
			if mark := run(board, i, j, 0, 1, winLength); mark != EmptyCell {
				return mark
			}
		}
	}

	// columns
	for j := 0; j < size; j++ {
		for i := 0; i <= size-winLength; i++ {
			if mark := run(board, i, j, 1, 0, winLength); mark != EmptyCell {
				return mark
			}
		}
	}

	// main diagonals
	for i := 0; i <= size-winLength; i++ {
		for j := 0; j <= size-winLength; j++ {
			if mark := run(board, i, j, 1, 1, winLength); mark != EmptyCell {
				return mark
			}
		}
	}

	// anti-diagonals
	for i := 0; i <= size-winLength; i++ {
		for j := winLength - 1; j < size; j++ {
			if mark := run(board, i, j, 1, -1, winLength); mark != EmptyCell {
				return mark
			}
		}
	}

	return EmptyCell
}

// IsDraw reports a full board without a winner.
func IsDraw(board Board, size int) bool {
	if !fits(board, size) {
		return false
	}

	for _, row := range board {
		for _, cell := range row {
			if cell == EmptyCell {
				return false
			}
		}
	}

	return DetectWinner(board, size) == EmptyCell
}

// run returns the mark at (row, col) if the next length cells along (dRow, dCol) all hold it.
func run(board Board, row, col, dRow, dCol, length int) Symbol {
	mark := board[row][col]
	if mark == EmptyCell {
		return EmptyCell
	}

	for k := 1; k < length; k++ {
		if board[row+k*dRow][col+k*dCol] != mark {
			return EmptyCell
		}
	}

	return mark
}

func fits(board Board, size int) bool {
	if len(board) != size {
		return false
	}

	for _, row := range board {
		if len(row) != size {
			return false
		}
	}

	return true
}
