package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	m := FindMeasure("death-register")
	require.NotNil(t, m)

	report := newReport(m, time.Now(), time.Time{}, time.Time{}, []map[string]interface{}{
		{
			"full_name":        "Ivanov Ivan",
			"insurance_number": "1234567890123456",
			"birth_date":       time.Date(1950, 3, 1, 0, 0, 0, 0, time.UTC),
			"death_date":       time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			"death_place":      "hospital",
			"death_cause":      "I21.0",
		},
		{
			"full_name":        "Petrova Anna",
			"insurance_number": "6543210987654321",
			"death_date":       time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
			"death_place":      "home",
			"death_cause":      "C50",
		},
	})

	data, err := WriteXLSX(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Full name", rows[0][0])
	assert.Equal(t, "Cause (ICD-10)", rows[0][5])
	assert.Equal(t, []string{"Ivanov Ivan", "1234567890123456", "1950-03-01", "2024-05-02", "hospital", "I21.0"}, rows[1])
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "2024-05-03", rows[2][3])
}

func TestWriteXLSX_EmptyReport(t *testing.T) {
	m := FindMeasure("diagnoses-by-status")
	data, err := WriteXLSX(newReport(m, time.Now(), time.Time{}, time.Time{}, nil))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Status", "Diagnoses"}, rows[0])
}

func TestCellValue(t *testing.T) {
	d := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	var nilTime *time.Time

	assert.Nil(t, cellValue(nil))
	assert.Nil(t, cellValue(nilTime))
	assert.Equal(t, "2024-02-29", cellValue(d))
	assert.Equal(t, "2024-02-29", cellValue(&d))
	assert.Equal(t, int64(7), cellValue(int64(7)))
	assert.Equal(t, "3", cellValue(uint8(3)))
}
