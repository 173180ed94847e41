package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

var ErrInvalidTestSize = errors.New("test size must leave at least one row in both the train and test split")

// TrainTestSplit shuffles row positions 0..n-1 with a generator seeded by seed and holds out
// ceil(testSize*n) of them for testing. The same seed always gives the same split. Both position
// slices are returned in ascending order.
func TrainTestSplit(n int, testSize float64, seed uint64) ([]int, []int, error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("got %.3f, %w", testSize, ErrInvalidTestSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("%d of %d rows held out, %w", nTest, n, ErrInvalidTestSize)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	test := perm[:nTest]
	train := perm[nTest:]
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}

// Split divides the dataset into train and test rows with TrainTestSplit
func (d *Dataset) Split(testSize float64, seed uint64) (*Dataset, *Dataset, error) {
	trainPos, testPos, err := TrainTestSplit(d.Len(), testSize, seed)
	if err != nil {
		return nil, nil, err
	}
	train, err := d.Rows(trainPos)
	if err != nil {
		return nil, nil, err
	}
	test, err := d.Rows(testPos)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
