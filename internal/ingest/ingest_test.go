package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTempXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Reviews")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "reviews.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadFile_CSV(t *testing.T) {
	path := writeTempCSV(t, `customer_name,customer_email,review_text,rating
Dana Reyes,dana@example.com,Cold food and a long wait.,2
Lee Park,LEE@Example.com,Loved it!,5
`)

	result, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Empty(t, result.Errors)

	assert.Equal(t, 2, result.Rows[0].Line)
	assert.Equal(t, "Dana Reyes", result.Rows[0].CustomerName)
	assert.Equal(t, "dana@example.com", result.Rows[0].CustomerEmail)
	require.NotNil(t, result.Rows[0].Rating)
	assert.Equal(t, 2, *result.Rows[0].Rating)

	// Emails are normalized to lowercase.
	assert.Equal(t, "lee@example.com", result.Rows[1].CustomerEmail)
}

func TestReadFile_FlexibleHeaders(t *testing.T) {
	path := writeTempCSV(t, `Name,Email,Feedback
Dana,dana@example.com,Great service.
`)

	result, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Great service.", result.Rows[0].ReviewText)
	assert.Nil(t, result.Rows[0].Rating)
}

func TestReadFile_MissingRequiredColumn(t *testing.T) {
	path := writeTempCSV(t, `customer_name,rating
Dana,4
`)

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email column")
}

func TestReadFile_BadRowsCollected(t *testing.T) {
	path := writeTempCSV(t, `name,email,review
,missing-name@example.com,Fine.
Dana,not-an-email,Fine.
Lee,lee@example.com,
Sam,sam@example.com,All good.
`)

	result, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Sam", result.Rows[0].CustomerName)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.Errors[0].Line)
	assert.Contains(t, result.Errors[0].Reason, "missing customer name")
	assert.Contains(t, result.Errors[1].Reason, "invalid customer email")
	assert.Contains(t, result.Errors[2].Reason, "missing review text")
}

func TestReadFile_SkipsEmptyRows(t *testing.T) {
	path := writeTempCSV(t, `name,email,review
Dana,dana@example.com,Good.
,,
Lee,lee@example.com,Bad.
`)

	result, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.Empty(t, result.Errors)
}

func TestReadFile_EmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a spreadsheet"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadFile_XLSX(t *testing.T) {
	path := writeTempXLSX(t, [][]string{
		{"customer_name", "customer_email", "review_text", "rating"},
		{"Dana Reyes", "dana@example.com", "Cold food.", "1"},
		{"Lee Park", "lee@example.com", "Wonderful!", "5"},
	})

	result, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "Cold food.", result.Rows[0].ReviewText)
	require.NotNil(t, result.Rows[1].Rating)
	assert.Equal(t, 5, *result.Rows[1].Rating)
}

func TestParseRating(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want *int
	}{
		{"4", intPtr(4)},
		{"4.0", intPtr(4)},
		{"1", intPtr(1)},
		{"5", intPtr(5)},
		{"0", nil},
		{"6", nil},
		{"4.5", nil},
		{"five", nil},
		{"", nil},
	}

	for _, tc := range cases {
		got := parseRating(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "input %q", tc.in)
		} else {
			require.NotNil(t, got, "input %q", tc.in)
			assert.Equal(t, *tc.want, *got)
		}
	}
}

func intPtr(v int) *int { return &v }
