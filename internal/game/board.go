package game

import (
	"fmt"
	"math/rand/v2"
)

// symbolCount is the size of the symbol alphabet ('A'..'Z')
const symbolCount = 26

// Board is the ordered grid of cells. Update methods return a new board
// and leave the receiver untouched.
type Board []Cell

// MakeBoard builds a shuffled board of rows*cols closed cells holding
// rows*cols/2 symbol pairs.
func MakeBoard(rows, cols int) (Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("make board %dx%d: %w", rows, cols, ErrBadDimensions)
	}
	total := rows * cols
	if total/2 > symbolCount {
		return nil, fmt.Errorf("make board %dx%d: %w", rows, cols, ErrTooManyPairs)
	}
	if total%2 != 0 {
		return nil, fmt.Errorf("make board %dx%d: %w", rows, cols, ErrOddCells)
	}

	board := make(Board, 0, total)
	for i := 0; i < total/2; i++ {
		symbol := rune('A' + i)
		board = append(board,
			Cell{Symbol: symbol, Status: CellClosed},
			Cell{Symbol: symbol, Status: CellClosed},
		)
	}

	rand.Shuffle(len(board), func(i, j int) {
		board[i], board[j] = board[j], board[i]
	})

	return board, nil
}

// StatusAt returns the status of the cell at index.
// The index must be in range.
func (b Board) StatusAt(index int) CellStatus {
	return b[index].Status
}

// SetStatusAt returns a copy of the board with one cell's status replaced.
// The index must be in range.
func (b Board) SetStatusAt(index int, status CellStatus) Board {
	next := b.clone()
	next[index].Status = status
	return next
}

// SetStatusesBy returns a copy of the board with status applied to every
// cell matching pred.
func (b Board) SetStatusesBy(pred CellPredicate, status CellStatus) Board {
	next := b.clone()
	for i := range next {
		if pred(next[i]) {
			next[i].Status = status
		}
	}
	return next
}

// StatusesBy returns the statuses of matching cells in board order
func (b Board) StatusesBy(pred CellPredicate) []CellStatus {
	statuses := []CellStatus{}
	for _, c := range b {
		if pred(c) {
			statuses = append(statuses, c.Status)
		}
	}
	return statuses
}

// SymbolsBy returns the symbols of matching cells in board order
func (b Board) SymbolsBy(pred CellPredicate) []rune {
	symbols := []rune{}
	for _, c := range b {
		if pred(c) {
			symbols = append(symbols, c.Symbol)
		}
	}
	return symbols
}

// CanOpenAt reports whether the cell at index may be flipped: it exists,
// it is closed, and fewer than two cells are blocking.
func (b Board) CanOpenAt(index int) bool {
	if index < 0 || index >= len(b) {
		return false
	}
	return IsClosed(b[index]) && len(b.StatusesBy(IsBlocking)) < 2
}

// OpensEqual reports a match: at least two open cells, all the same symbol
func (b Board) OpensEqual() bool {
	symbols := b.SymbolsBy(IsOpen)
	return len(symbols) >= 2 && allEqual(symbols)
}

// OpensDifferent reports a mismatch among two or more open cells
func (b Board) OpensDifferent() bool {
	symbols := b.SymbolsBy(IsOpen)
	return len(symbols) >= 2 && !allEqual(symbols)
}

// AllDone reports whether every pair has been found
func (b Board) AllDone() bool {
	for _, c := range b {
		if !IsDone(c) {
			return false
		}
	}
	return true
}

func (b Board) clone() Board {
	next := make(Board, len(b))
	copy(next, b)
	return next
}

func allEqual(symbols []rune) bool {
	for _, s := range symbols[1:] {
		if s != symbols[0] {
			return false
		}
	}
	return true
}

// BoardError is returned when a board cannot be built
type BoardError string

func (e BoardError) Error() string { return string(e) }

const (
	ErrOddCells      BoardError = "board must have an even number of cells"
	ErrTooManyPairs  BoardError = "board has more pairs than available symbols"
	ErrBadDimensions BoardError = "board dimensions must be positive"
)
