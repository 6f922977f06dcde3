// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"math"
	"math/rand/v2"
)

// NumValidation returns how many of n images go to the validation split: floor(validationSize * n).
func NumValidation(validationSize float64, n int) int {
	numValidation := int(math.Floor(validationSize * float64(n)))
	return max(0, min(numValidation, n))
}

// Split shuffles records with a generator seeded with seed and splits them: validation gets the first
// NumValidation(validationSize, len(records)) records of the shuffled order, train gets the rest.
//
// A single permutation is applied to the records, so each image path keeps its ID.
// The input slice is not modified. The same records and seed always produce the same split.
func Split(records []ImageRecord, validationSize float64, seed int64) (train, validation []ImageRecord) {
	shuffled := Shuffle(records, seed)
	numValidation := NumValidation(validationSize, len(shuffled))
	return shuffled[numValidation:], shuffled[:numValidation]
}

// Shuffle returns a copy of records permuted by a PCG generator seeded with seed.
func Shuffle(records []ImageRecord, seed int64) []ImageRecord {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	permutation := rng.Perm(len(records))
	shuffled := make([]ImageRecord, len(records))
	for to, from := range permutation {
		shuffled[to] = records[from]
	}
	return shuffled
}
