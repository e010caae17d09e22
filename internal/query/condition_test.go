package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConditionPicksHighestPriorityOperator(t *testing.T) {
	c, err := ParseCondition("exposureTime >= 100")
	require.NoError(t, err)
	assert.Equal(t, "exposureTime", c.Key)
	assert.Equal(t, GreaterEqual, c.Op)
	assert.Equal(t, "100", c.Value)
}

// TestParseConditionOperatorPriorityBeatsLeftmostPosition pins the
// divergence a leftmost-string-index scan would get wrong: "=" occurs
// earlier in the string than ">", but no token ahead of ">" in
// operatorTokens occurs in the string, so ">" wins per the fixed
// priority order, exactly like QueryCondition::fromString's
// if/else-if chain.
func TestParseConditionOperatorPriorityBeatsLeftmostPosition(t *testing.T) {
	c, err := ParseCondition("path=/data>report")
	require.NoError(t, err)
	assert.Equal(t, GreaterThan, c.Op)
	assert.Equal(t, "path=/data", c.Key)
	assert.Equal(t, "report", c.Value)
}

func TestParseConditionDistinguishesEqualsFromNotEquals(t *testing.T) {
	c, err := ParseCondition("instrument != CCD1")
	require.NoError(t, err)
	assert.Equal(t, NotEquals, c.Op)
	assert.Equal(t, "instrument", c.Key)
	assert.Equal(t, "CCD1", c.Value)
}

func TestParseConditionRejectsMissingOperator(t *testing.T) {
	_, err := ParseCondition("justAKey")
	assert.Error(t, err)
}

func TestConditionMatchesNumericComparison(t *testing.T) {
	c, err := ParseCondition("exposureTime > 50")
	require.NoError(t, err)
	assert.True(t, c.Matches("exposureTime", "100"))
	assert.False(t, c.Matches("exposureTime", "10"))
}

func TestConditionMatchesLexicographicFallbackOnNonNumeric(t *testing.T) {
	c, err := ParseCondition("label > alpha")
	require.NoError(t, err)
	assert.True(t, c.Matches("label", "beta"))
	assert.False(t, c.Matches("label", "aardvark"))
}

func TestConditionMatchesEqualsWithWildcard(t *testing.T) {
	c, err := ParseCondition("instrument = CCD*")
	require.NoError(t, err)
	assert.True(t, c.Matches("instrument", "CCD1"))
	assert.False(t, c.Matches("instrument", "PMT1"))
}

func TestConditionMatchesContainsStartsWithEndsWith(t *testing.T) {
	contains, err := ParseCondition("FILE_PATH contains nm")
	require.NoError(t, err)
	assert.True(t, contains.Matches("FILE_PATH", "/data/488nm.tif"))

	starts, err := ParseCondition("FILE_PATH startsWith /data")
	require.NoError(t, err)
	assert.True(t, starts.Matches("FILE_PATH", "/data/488nm.tif"))

	ends, err := ParseCondition("FILE_PATH endsWith .tif")
	require.NoError(t, err)
	assert.True(t, ends.Matches("FILE_PATH", "/data/488nm.tif"))
	assert.False(t, ends.Matches("FILE_PATH", "/data/488nm.raw"))
}

func TestConditionMatchesRegex(t *testing.T) {
	c, err := ParseCondition("FILE_PATH ~= ^/data/.*nm\\.tif$")
	require.NoError(t, err)
	assert.True(t, c.Matches("FILE_PATH", "/data/488nm.tif"))
	assert.False(t, c.Matches("FILE_PATH", "/data/488nm.raw"))
}

func TestConditionKeyWildcardMustMatchKey(t *testing.T) {
	c, err := ParseCondition("*PATH = /data/*")
	require.NoError(t, err)
	assert.True(t, c.Matches("FILE_PATH", "/data/x"))
	assert.False(t, c.Matches("OTHER", "/data/x"))
}
