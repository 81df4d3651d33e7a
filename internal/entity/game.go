package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
)

// Mark is the symbol a player places on the board.
type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

const (
	BoardSide = 3
	BoardSize = BoardSide * BoardSide
)

// Outcome is the result of applying a move.
type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeWin
	OutcomeDraw
)

func (that Outcome) String() string {
	switch that {
	case OutcomeWin:
		return "win"
	case OutcomeDraw:
		return "draw"
	default:
		return "ongoing"
	}
}

// WinCombos lists every line of three cells: rows, columns, diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Marks in seat order: the first arrival plays X.
var Marks = [2]Mark{PlayerX, PlayerO}

type Board [BoardSize]Mark

// Game holds the shared board and the turn bookkeeping. It is not safe for concurrent use,
// the session serializes every call.
type Game struct {
	Board Board `json:"board"`
	Turn  Mark  `json:"turn"`
}

func NewGame() *Game {
	return &Game{Turn: PlayerX}
}

// CellIndex - maps a (row, col) pair in 0..2 to a board index.
func CellIndex(row, col int) (int, error) {
	if row < 0 || row >= BoardSide || col < 0 || col >= BoardSide {
		return 0, fmt.Errorf("%w: row %d col %d", apperror.ErrCellOutOfRange, row, col)
	}

	return row*BoardSide + col, nil
}

// MakeMove - writes the mark into the cell and reports whether the game is decided.
// The turn is bookkeeping only, any seated mark may move.
func (that *Game) MakeMove(mark Mark, row, col int) (Outcome, error) {
	cell, err := CellIndex(row, col)
	if err != nil {
		return OutcomeOngoing, err
	}

	if that.Board[cell] != EmptyCell {
		return OutcomeOngoing, fmt.Errorf("%w: row %d col %d", apperror.ErrCellOccupied, row, col)
	}

	that.Board[cell] = mark

	switch {
	case that.HasWon(mark):
		return OutcomeWin, nil
	case that.IsFull():
		return OutcomeDraw, nil
	}

	that.Turn = Opponent(mark)

	return OutcomeOngoing, nil
}

// HasWon - checks the eight lines against the given mark only.
func (that *Game) HasWon(mark Mark) bool {
	if mark == EmptyCell {
		return false
	}

	for _, combo := range WinCombos {
		if that.Board[combo[0]] == mark && that.Board[combo[1]] == mark && that.Board[combo[2]] == mark {
			return true
		}
	}

	return false
}

func (that *Game) IsFull() bool {
	for _, cell := range that.Board {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

func (that *Game) IsEmpty() bool {
	return that.Board == Board{}
}

// Reset - clears the board and hands the first turn back to X.
func (that *Game) Reset() {
	that.Board = Board{}
	that.Turn = PlayerX
}

func Opponent(mark Mark) Mark {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (that Mark) IsValid() bool {
	return that == PlayerX || that == PlayerO
}
