package optimiser

// removeOffsetsBeforeZeroing drops arithmetic on a cell when a clear loop
// erases that cell before anything could read it. Recurses into blocks.
func removeOffsetsBeforeZeroing(ops []operation) []operation {
	for idx, op := range ops {
		blk, ok := op.(*blockOp)
		if !ok || !blk.block.isZeroing() {
			continue
		}
		zeroedCell := blk.cell

		// walk back to the nearest operation that needs the cell's value;
		// offsets between it and the clear loop are dead
		rangeStart := 0
		for j := idx - 1; j >= 0; j-- {
			if ops[j].fencesCell(zeroedCell) {
				rangeStart = j + 1
				break
			}
		}

		for j := rangeStart; j < idx; j++ {
			if off, ok := ops[j].(*offsetOp); ok && off.cell == zeroedCell {
				off.recurrence = 0
			}
		}
	}

	ops = dropZeroOffsets(ops)

	for _, op := range ops {
		if blk, ok := op.(*blockOp); ok {
			blk.block.ops = removeOffsetsBeforeZeroing(blk.block.ops)
		}
	}

	return ops
}
