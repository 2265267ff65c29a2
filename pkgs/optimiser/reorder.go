package optimiser

import (
	"math"
	"slices"
)

// reorderOperations moves every operation once, as far as fencing allows,
// to the position that wastes the least pointer travel. Recurses into
// blocks.
func reorderOperations(ops []operation) []operation {
	// processed mirrors ops so each operation is only placed once
	processed := make([]bool, len(ops))

	for {
		idx := slices.Index(processed, false)
		if idx == -1 {
			break
		}

		start, end := operationValidityRange(ops, idx)

		op := ops[idx]
		ops = slices.Delete(ops, idx, idx+1)
		processed = slices.Delete(processed, idx, idx+1)

		bestIndex, bestLost := idx, math.MaxInt
		for i := start; i < end; i++ {
			if lost := lostDistance(op, ops, i); lost < bestLost {
				bestIndex, bestLost = i, lost
			}
		}

		ops = slices.Insert(ops, bestIndex, op)
		processed = slices.Insert(processed, bestIndex, true)
	}

	for _, op := range ops {
		if blk, ok := op.(*blockOp); ok {
			blk.block.ops = reorderOperations(blk.block.ops)
		}
	}

	return ops
}

// lostDistance is the extra pointer travel caused by inserting op at idx,
// compared to the travel between its would-be neighbours today. Sections are
// assumed to start and end at cell 0.
func lostDistance(op operation, ops []operation, idx int) int {
	positionBefore := 0
	for i := idx - 1; i >= 0; i-- {
		if pos, ok := ops[i].cellPosition(); ok {
			positionBefore = pos
			break
		}
	}

	positionAfter := 0
	for i := idx; i < len(ops); i++ {
		if pos, ok := ops[i].cellPosition(); ok {
			positionAfter = pos
			break
		}
	}

	selfPosition, ok := op.cellPosition()
	if !ok {
		return 0
	}

	distanceBefore := abs(positionAfter - positionBefore)
	distanceAfter := abs(selfPosition-positionBefore) + abs(positionAfter-selfPosition)

	return distanceAfter - distanceBefore
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
