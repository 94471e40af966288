package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/dumpit/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_AddAndTest(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	// URL not yet added should return false
	assert.False(t, f.Test("https://example.com/page1"))

	f.Add("https://example.com/page1")

	assert.True(t, f.Test("https://example.com/page1"))
	assert.False(t, f.Test("https://example.com/page2"))
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		numItems   = 10000
		fpRate     = 0.01
		testProbes = 10000
	)

	f := bloom.NewFilter(numItems, fpRate)

	for i := range numItems {
		f.Add(fmt.Sprintf("https://example.com/added/%d", i))
	}

	falsePositives := 0
	for i := range testProbes {
		if f.Test(fmt.Sprintf("https://example.com/notadded/%d", i)) {
			falsePositives++
		}
	}

	// Allow up to 2% to account for statistical variance
	actualRate := float64(falsePositives) / float64(testProbes)
	assert.Less(t, actualRate, 0.02, "false positive rate %f exceeds 2%%", actualRate)
}

func TestSet_Add(t *testing.T) {
	t.Parallel()

	s := bloom.NewSet(100, 0.01)

	assert.True(t, s.Add("https://example.com/a"))
	assert.False(t, s.Add("https://example.com/a"), "second add of the same URL should report false")
	assert.True(t, s.Add("https://example.com/b"))
	assert.Equal(t, 2, s.Len())
}

func TestSet_Has_has_no_false_positives(t *testing.T) {
	t.Parallel()

	// A tiny, overloaded filter answers "maybe" for almost everything.
	s := bloom.NewSet(1, 0.5)
	for i := range 1000 {
		s.Add(fmt.Sprintf("https://example.com/added/%d", i))
	}

	for i := range 1000 {
		assert.False(t, s.Has(fmt.Sprintf("https://example.com/other/%d", i)))
	}
	assert.True(t, s.Has("https://example.com/added/999"))
	assert.Equal(t, 1000, s.Len())
}
