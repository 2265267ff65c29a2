package optimiser

// block is the parsed contents of a matched bracket pair
type block struct {
	ops      []operation
	endpoint int
	dynamic  bool
}

// newBlock parses a bracket section. src must start with '[' and end with
// the matching ']'.
func newBlock(src string) *block {
	content := src[1 : len(src)-1]
	ops, endpoint, dynamic := parseOperations(content)

	return &block{
		ops:      ops,
		endpoint: endpoint,
		dynamic:  dynamic,
	}
}

// isDynamic reports whether the block shifts the tape pointer when run
func (b *block) isDynamic() bool {
	return b.dynamic
}

// fencesCell reports whether the block needs the value of the cell at idx,
// counted relative to the block's opening bracket
func (b *block) fencesCell(idx int) bool {
	// a dynamic block may touch any cell
	if b.isDynamic() {
		return true
	}

	// the bracket tests cell 0 to branch
	if idx == 0 {
		return true
	}

	for _, op := range b.ops {
		if op.fencesCell(idx) {
			return true
		}
	}
	return false
}

// modifiedCells collects every cell the block's operations write to
func (b *block) modifiedCells() map[int]struct{} {
	cells := make(map[int]struct{})
	for _, op := range b.ops {
		op.addModifiedCells(cells)
	}
	return cells
}

// isZeroing reports whether the block is a clear loop, ignoring raw text:
// a lone `[-]` or `[+]`
func (b *block) isZeroing() bool {
	if b.isDynamic() {
		return false
	}

	var only operation
	for _, op := range b.ops {
		if _, ok := op.(*textOp); ok {
			continue
		}
		if only != nil {
			return false
		}
		only = op
	}

	off, ok := only.(*offsetOp)
	return ok && off.cell == 0 && (off.recurrence == 1 || off.recurrence == -1)
}

// toBrainfuck renders the block back into text, restoring the pointer to the
// block's endpoint so the closing bracket tests the right cell
func (b *block) toBrainfuck() string {
	inner := operationsToBrainfuck(b.ops)

	lastPosition := 0
	for i := len(b.ops) - 1; i >= 0; i-- {
		if pos, ok := b.ops[i].cellPosition(); ok {
			lastPosition = pos
			break
		}
	}

	offset := 0
	if b.dynamic {
		offset = b.endpoint
	}

	var buf []byte
	buf = append(buf, '[')
	buf = append(buf, inner...)
	delta := offset - lastPosition
	ch := byte('>')
	if delta < 0 {
		ch = '<'
		delta = -delta
	}
	for i := 0; i < delta; i++ {
		buf = append(buf, ch)
	}
	buf = append(buf, ']')

	return string(buf)
}
