package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasures_WellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Measures {
		assert.False(t, seen[m.ID], "duplicate measure id %s", m.ID)
		seen[m.ID] = true

		assert.NotEmpty(t, m.Name, m.ID)
		assert.NotEmpty(t, m.Description, m.ID)
		assert.NotEmpty(t, m.Columns, m.ID)
		assert.Contains(t, m.SQL, "$1", m.ID)
		assert.Contains(t, m.SQL, "$2", m.ID)

		for _, c := range m.Columns {
			assert.True(t, strings.Contains(m.SQL, c.Key), "measure %s does not select %s", m.ID, c.Key)
		}
	}
}

func TestFindMeasure(t *testing.T) {
	m := FindMeasure("death-register")
	require.NotNil(t, m)
	assert.Equal(t, "Death register", m.Name)
	assert.Nil(t, FindMeasure("nonexistent"))
}

func TestNewReport_Bounds(t *testing.T) {
	m := FindMeasure("deaths-by-place")
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r := newReport(m, now, from, time.Time{}, nil)
	require.NotNil(t, r.From)
	assert.Equal(t, from, *r.From)
	assert.Nil(t, r.To)
	assert.Equal(t, m.Columns, r.Columns)
	assert.Equal(t, now, r.GeneratedAt)
}

func TestDateArg(t *testing.T) {
	assert.Nil(t, dateArg(time.Time{}))
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, d, dateArg(d))
}
