package game

// CellStatus is the face of a single card
type CellStatus int

const (
	CellClosed CellStatus = iota
	CellOpen
	CellDone
	CellFailed
)

// String returns the wire name of the status
func (s CellStatus) String() string {
	switch s {
	case CellClosed:
		return "closed"
	case CellOpen:
		return "open"
	case CellDone:
		return "done"
	case CellFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cell is one card slot on the board
type Cell struct {
	Symbol rune
	Status CellStatus
}

// CellPredicate selects cells for bulk queries and updates
type CellPredicate func(Cell) bool

func IsOpen(c Cell) bool   { return c.Status == CellOpen }
func IsClosed(c Cell) bool { return c.Status == CellClosed }
func IsDone(c Cell) bool   { return c.Status == CellDone }
func IsFailed(c Cell) bool { return c.Status == CellFailed }

// IsBlocking reports whether the cell counts toward the two revealed cards
func IsBlocking(c Cell) bool {
	return IsOpen(c) || IsFailed(c)
}
