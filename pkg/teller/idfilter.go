package teller

import (
	"strconv"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// idFilter is a probabilistic set of issued account ids. A negative answer
// is definite, so lookups for ids that were never issued skip the bank.
type idFilter struct {
	mu       sync.RWMutex
	filter   *bloom.BloomFilter
	expected uint
	fpRate   float64

	totalQueries   uint64
	rejected       uint64
	falsePositives uint64
}

func newIDFilter(expectedItems uint, falsePositiveRate float64) *idFilter {
	if expectedItems == 0 {
		expectedItems = 10000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	return &idFilter{
		filter:   bloom.NewWithEstimates(expectedItems, falsePositiveRate),
		expected: expectedItems,
		fpRate:   falsePositiveRate,
	}
}

func idKey(id int) []byte {
	return []byte(strconv.Itoa(id))
}

func (f *idFilter) add(id int) {
	f.mu.Lock()
	f.filter.Add(idKey(id))
	f.mu.Unlock()
}

// mayContain reports false only for ids that were never added.
func (f *idFilter) mayContain(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.totalQueries++
	if !f.filter.Test(idKey(id)) {
		f.rejected++
		return false
	}
	return true
}

// falsePositive records a lookup the filter passed but the bank could not serve.
func (f *idFilter) falsePositive() {
	f.mu.Lock()
	f.falsePositives++
	f.mu.Unlock()
}

// reset empties the filter and refills it with ids.
func (f *idFilter) reset(ids []int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.filter = bloom.NewWithEstimates(f.expected, f.fpRate)
	for _, id := range ids {
		f.filter.Add(idKey(id))
	}
}

func (f *idFilter) stats() FilterStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rejectionRate := 0.0
	if f.totalQueries > 0 {
		rejectionRate = float64(f.rejected) / float64(f.totalQueries)
	}

	return FilterStats{
		TotalQueries:   f.totalQueries,
		Rejected:       f.rejected,
		FalsePositives: f.falsePositives,
		RejectionRate:  rejectionRate,
		Capacity:       f.filter.Cap(),
	}
}

// FilterStats describes how the account id filter has performed.
type FilterStats struct {
	TotalQueries   uint64
	Rejected       uint64
	FalsePositives uint64
	RejectionRate  float64
	Capacity       uint
}
