// Package position describes where an edit lands in a file: on an original
// line, or after one at a sub-offset.
package position

import (
	"cmp"
	"errors"
	"fmt"
)

// Kind distinguishes the two descriptor forms.
type Kind int

const (
	// Replace targets an existing original line.
	Replace Kind = iota
	// InsertAfter adds a new line after an original anchor line.
	InsertAfter
)

// codeWidth is the fixed width reserved for the offset in the legacy integer encoding.
const codeWidth = 1000

// MaxOffset is the highest insertion offset the integer encoding can carry.
const MaxOffset = codeWidth - 2

// ErrZeroCode is returned when decoding the integer 0, which names no position.
var ErrZeroCode = errors.New("position code 0 is not a valid descriptor")

// Descriptor is an edit target.
type Descriptor struct {
	Kind Kind
	// Line is the 1-based original line for Replace, or the anchor line for InsertAfter.
	Line int
	// Offset orders several insertions after the same anchor, starting at 0.
	Offset int
}

// ReplaceLine returns a descriptor targeting original line line.
func ReplaceLine(line int) Descriptor {
	return Descriptor{Kind: Replace, Line: line}
}

// InsertAt returns a descriptor for the offset-th new line after baseLine.
func InsertAt(baseLine, offset int) Descriptor {
	return Descriptor{Kind: InsertAfter, Line: baseLine, Offset: offset}
}

// IsInsert reports whether d adds a line.
func (d Descriptor) IsInsert() bool { return d.Kind == InsertAfter }

// Code encodes d as a signed integer: positive for replacements,
// -(baseLine*1000 + offset + 1) for insertions. Offsets above MaxOffset
// overflow into the anchor and are not checked.
func (d Descriptor) Code() int {
	if d.Kind == Replace {
		return d.Line
	}
	return -(d.Line*codeWidth + d.Offset + 1)
}

// Decode reverses Code.
func Decode(code int) (Descriptor, error) {
	switch {
	case code > 0:
		return ReplaceLine(code), nil
	case code < 0:
		encoded := -code
		return InsertAt(encoded/codeWidth, encoded%codeWidth-1), nil
	default:
		return Descriptor{}, ErrZeroCode
	}
}

// Compare orders descriptors of the same kind: by line, then by offset.
func Compare(a, b Descriptor) int {
	if c := cmp.Compare(a.Line, b.Line); c != 0 {
		return c
	}
	return cmp.Compare(a.Offset, b.Offset)
}

// Less reports whether a sorts before b under Compare.
func Less(a, b Descriptor) bool { return Compare(a, b) < 0 }

func (d Descriptor) String() string {
	if d.Kind == Replace {
		return fmt.Sprintf("line %d", d.Line)
	}
	return fmt.Sprintf("after line %d +%d", d.Line, d.Offset)
}
