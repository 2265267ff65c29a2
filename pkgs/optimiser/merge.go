package optimiser

// mergeOffsets folds each offset into the earliest offset on the same cell
// that it can reach without crossing a fence. Recurses into blocks.
func mergeOffsets(ops []operation) []operation {
	for idx, op := range ops {
		self, ok := op.(*offsetOp)
		if !ok || self.recurrence == 0 {
			continue
		}

		start, _ := operationValidityRange(ops, idx)

		for j := start; j < idx; j++ {
			other, ok := ops[j].(*offsetOp)
			if !ok || other.cell != self.cell || other.recurrence == 0 {
				continue
			}

			other.recurrence += self.recurrence
			self.recurrence = 0
			break
		}
	}

	ops = dropZeroOffsets(ops)

	for _, op := range ops {
		if blk, ok := op.(*blockOp); ok {
			blk.block.ops = mergeOffsets(blk.block.ops)
		}
	}

	return ops
}
