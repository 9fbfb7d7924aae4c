package postgres

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextArray_ScansInParallel(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var times []string
			err := textArray(&times).Scan("{8:00AM,8:00PM}")
			assert.NoError(t, err)
			assert.Equal(t, []string{"8:00AM", "8:00PM"}, times)
		}()
	}
	wg.Wait()
}

func TestNullTimeHelpers(t *testing.T) {
	assert.False(t, toNullTime(nil).Valid)
	assert.Nil(t, fromNullTime(toNullTime(nil)))
	assert.Equal(t, []string{}, nonNil(nil))
}
