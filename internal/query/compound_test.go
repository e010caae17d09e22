package query

import (
	"testing"

	"github.com/sashank1508/idioms/internal/affixindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompoundQuerySingleCondition(t *testing.T) {
	cq, err := ParseCompoundQuery("instrument = CCD1")
	require.NoError(t, err)
	require.Len(t, cq.Conditions, 1)
	require.Len(t, cq.Operators, 0)
	assert.Equal(t, "instrument", cq.Conditions[0].Key)
}

func TestParseCompoundQueryPreservesLeftToRightOperatorOrder(t *testing.T) {
	cq, err := ParseCompoundQuery("a = 1 AND b = 2 OR c = 3")
	require.NoError(t, err)
	require.Len(t, cq.Conditions, 3)
	require.Equal(t, []logicalOp{opAnd, opOr}, cq.Operators)
}

// TestCompoundQueryMatchesIsAFlatLeftToRightFoldNoPrecedence pins the
// concrete divergence a precedence-grouped evaluator would get wrong:
// for "a OR b AND c" with a=true, b=false, c=false, a strict
// left-to-right fold computes (a OR b) AND c = false. An AND-binds-
// tighter-than-OR evaluator would instead compute a OR (b AND c) =
// true. Operator precedence between AND and OR is undefined by the
// grammar (spec.md's "Evaluation is strictly left-to-right"), and this
// repo picks the flat fold, matching the original's sequential
// `result = result && cond` / `result = result || cond` accumulation
// (original_source/src4/query/MultiConditionQuery.cpp).
func TestCompoundQueryMatchesIsAFlatLeftToRightFoldNoPrecedence(t *testing.T) {
	cq, err := ParseCompoundQuery("a = 1 OR b = 2 AND c = 3")
	require.NoError(t, err)

	metadata := []affixindex.Record{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "999"},
		{Key: "c", Value: "999"},
	}
	assert.False(t, cq.Matches(metadata), "(a OR b) AND c should be false, not a OR (b AND c)")
}

func TestCompoundQueryMatchesAndChain(t *testing.T) {
	cq, err := ParseCompoundQuery("instrument = CCD1 AND exposureTime > 50")
	require.NoError(t, err)

	metadata := []affixindex.Record{
		{Key: "instrument", Value: "CCD1"},
		{Key: "exposureTime", Value: "100"},
	}
	assert.True(t, cq.Matches(metadata))

	short := []affixindex.Record{{Key: "instrument", Value: "CCD1"}}
	assert.False(t, cq.Matches(short))
}

func TestCompoundQueryMatchesOrChain(t *testing.T) {
	cq, err := ParseCompoundQuery("instrument = CCD1 OR instrument = PMT1")
	require.NoError(t, err)

	assert.True(t, cq.Matches([]affixindex.Record{{Key: "instrument", Value: "PMT1"}}))
	assert.False(t, cq.Matches([]affixindex.Record{{Key: "instrument", Value: "APD1"}}))
}

func TestCompoundQueryExecuteOverIndex(t *testing.T) {
	idx := affixindex.New(false)
	idx.AddRecord("instrument", "CCD1", 1001)
	idx.AddRecord("exposureTime", "100", 1001)
	idx.AddRecord("instrument", "PMT1", 1002)
	idx.AddRecord("exposureTime", "10", 1002)

	cq, err := ParseCompoundQuery("instrument = CCD1 AND exposureTime > 50")
	require.NoError(t, err)
	assert.Equal(t, []int64{1001}, cq.Execute(idx))
}
