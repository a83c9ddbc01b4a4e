package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/paveg/churnscope/internal/validation"
)

// Split shuffles rows with a seeded generator and holds out
// ceil(len(rows) * testFraction) of them for testing. The same seed and
// input always give the same split. rows is not modified.
func Split(rows []Customer, testFraction float64, seed uint64) (train, test []Customer, err error) {
	if err := validation.NewCompoundValidator(
		validation.NewNonEmptyValidator(len(rows), "Split"),
		validation.NewRangeValidator(testFraction, 0, 1, "test_fraction", "Split").Exclusive(),
	).Validate(); err != nil {
		return nil, nil, err
	}

	n := len(rows)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)

	test = make([]Customer, 0, nTest)
	train = make([]Customer, 0, n-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, rows[idx])
		} else {
			train = append(train, rows[idx])
		}
	}
	return train, test, nil
}
