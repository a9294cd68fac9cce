package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomNumber(t *testing.T) {
	nums := generateRandomNumber(1, 7, 3)
	assert.Len(t, nums, 3)
	for i, n := range nums {
		assert.GreaterOrEqual(t, n, 1)
		assert.Less(t, n, 7)
		if i > 0 {
			assert.Less(t, nums[i-1], n)
		}
	}

	// asking for more than the range holds must not spin forever
	assert.Len(t, generateRandomNumber(1, 4, 10), 3)
	assert.Empty(t, generateRandomNumber(1, 1, 2))
}
