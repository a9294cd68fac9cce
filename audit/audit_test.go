package audit

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	a := NewEntry("report.pdf", "abcd", true)
	b := NewEntry("report.pdf", "abcd", false)
	assert.Equal(t, StatusValid, a.Status)
	assert.Equal(t, StatusTampered, b.Status)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestEntryJSON(t *testing.T) {
	e := NewEntry("a.txt", "ff", true)
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"id", "fileName", "hash", "status", "timestamp"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, e.ID.String(), fields["id"])
}

func TestStore(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.List())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(NewEntry("f", "h", i%4 != 0))
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.List(), 20)
	assert.Len(t, s.Tampered(), 5)

	list := s.List()
	list[0].FileName = "changed"
	assert.NotEqual(t, "changed", s.List()[0].FileName)
}
