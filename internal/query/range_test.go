package query

import (
	"testing"

	"github.com/sashank1508/idioms/internal/affixindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRangeQueryNumeric(t *testing.T) {
	rq, err := ParseRangeQuery("exposureTime in range [50 to 150]")
	require.NoError(t, err)
	assert.False(t, rq.IsDateRange)
	assert.Equal(t, "exposureTime", rq.Key)
	assert.Equal(t, 50.0, rq.Min)
	assert.Equal(t, 150.0, rq.Max)

	assert.True(t, rq.InRange("exposureTime", "100"))
	assert.False(t, rq.InRange("exposureTime", "200"))
}

func TestParseRangeQueryRejectsMalformedInput(t *testing.T) {
	_, err := ParseRangeQuery("not a range query")
	assert.Error(t, err)
}

func TestParseRangeQueryISODate(t *testing.T) {
	rq, err := ParseRangeQuery("captureDate in range [2024-01-01 to 2024-12-31]")
	require.NoError(t, err)
	assert.True(t, rq.IsDateRange)
	assert.Equal(t, DateFormatISO, rq.DateFormat)

	assert.True(t, rq.InRange("captureDate", "2024-06-15"))
	assert.False(t, rq.InRange("captureDate", "2025-01-01"))
}

func TestParseRangeQueryUSDate(t *testing.T) {
	rq, err := ParseRangeQuery("captureDate in range [01/01/2024 to 12/31/2024]")
	require.NoError(t, err)
	assert.True(t, rq.IsDateRange)
	assert.Equal(t, DateFormatUS, rq.DateFormat)
	assert.True(t, rq.InRange("captureDate", "06/15/2024"))
}

func TestParseRangeQueryEUDate(t *testing.T) {
	rq, err := ParseRangeQuery("captureDate in range [01-01-2024 to 31-12-2024]")
	require.NoError(t, err)
	assert.True(t, rq.IsDateRange)
	assert.Equal(t, DateFormatEU, rq.DateFormat)
	assert.True(t, rq.InRange("captureDate", "15-06-2024"))
}

func TestRangeQueryInRangeRejectsWrongDateFormat(t *testing.T) {
	rq, err := ParseRangeQuery("captureDate in range [2024-01-01 to 2024-12-31]")
	require.NoError(t, err)
	assert.False(t, rq.InRange("captureDate", "06/15/2024"))
}

func TestRangeQueryExecuteOverIndex(t *testing.T) {
	idx := affixindex.New(false)
	idx.AddRecord("exposureTime", "100", 1001)
	idx.AddRecord("exposureTime", "500", 1002)

	rq, err := ParseRangeQuery("exposureTime in range [50 to 150]")
	require.NoError(t, err)
	assert.Equal(t, []int64{1001}, rq.Execute(idx))
}
