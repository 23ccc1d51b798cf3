package database

import "math/big"

const (
	// BlockInterval is the target number of seconds between blocks.
	BlockInterval = 10

	// AdjustmentInterval is the number of blocks between difficulty
	// adjustments.
	AdjustmentInterval = 10
)

// RequiredDifficulty returns the difficulty the block following the last
// block of the chain must carry. Every AdjustmentInterval blocks the
// difficulty moves by one step towards the target block time, measured
// against the block AdjustmentInterval positions back in this same chain.
func RequiredDifficulty(chain []Block) uint {
	if len(chain) == 0 {
		return 0
	}

	tip := chain[len(chain)-1]
	if tip.Index == 0 || tip.Index%AdjustmentInterval != 0 || len(chain) <= AdjustmentInterval {
		return tip.Difficulty
	}

	baseline := chain[len(chain)-1-AdjustmentInterval]

	const expected = BlockInterval * AdjustmentInterval
	actual := tip.Timestamp - baseline.Timestamp

	switch {
	case actual < expected/2:
		if baseline.Difficulty >= MaxDifficulty {
			return MaxDifficulty
		}
		return baseline.Difficulty + 1

	case actual > expected*2:
		if baseline.Difficulty == 0 {
			return 0
		}
		return baseline.Difficulty - 1
	}

	return baseline.Difficulty
}

// CumulativeWork returns the sum of 2^difficulty over every block.
func CumulativeWork(chain []Block) *big.Int {
	work := new(big.Int)
	for _, b := range chain {
		work.Add(work, new(big.Int).Lsh(big.NewInt(1), b.Difficulty))
	}

	return work
}
