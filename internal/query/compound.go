package query

import (
	"sort"
	"strings"

	"github.com/sashank1508/idioms/internal/affixindex"
	"github.com/sashank1508/idioms/internal/errs"
)

// logicalOp joins two adjacent conditions in a CompoundQuery.
type logicalOp string

const (
	opAnd logicalOp = "AND"
	opOr  logicalOp = "OR"
)

const (
	andToken = " AND "
	orToken  = " OR "
)

// CompoundQuery is a flat AND/OR condition chain with no operator
// precedence between AND and OR, evaluated strictly left to right, per
// spec.md's own "Evaluation is strictly left-to-right with
// short-circuit" contract and MultiConditionQuery::matches's sequential
// `result = result && cond` / `result = result || cond` fold
// (original_source/src4/query/MultiConditionQuery.cpp).
type CompoundQuery struct {
	// Conditions holds every condition in the order it appears.
	// Operators[i] joins Conditions[i] to Conditions[i+1], so
	// len(Operators) == len(Conditions)-1.
	Conditions []Condition
	Operators  []logicalOp
}

// ParseCompoundQuery parses `cond ( ("AND"|"OR") cond )*`, extracting
// conditions and operators left to right exactly as
// MultiConditionQuery::fromString does: repeatedly locate whichever of
// " AND "/" OR " occurs earliest in the remaining string and peel off
// the condition before it.
func ParseCompoundQuery(s string) (*CompoundQuery, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errs.New(errs.CodeParse, "empty compound query")
	}

	cq := &CompoundQuery{}
	remaining := s
	for {
		opPos, op, skip := firstOperator(remaining)
		if opPos < 0 {
			cond, err := ParseCondition(strings.TrimSpace(remaining))
			if err != nil {
				return nil, err
			}
			cq.Conditions = append(cq.Conditions, cond)
			return cq, nil
		}
		cond, err := ParseCondition(strings.TrimSpace(remaining[:opPos]))
		if err != nil {
			return nil, err
		}
		cq.Conditions = append(cq.Conditions, cond)
		cq.Operators = append(cq.Operators, op)
		remaining = remaining[opPos+skip:]
	}
}

// firstOperator returns the position, logical operator, and token
// length of whichever of " AND "/" OR " occurs first in s, or a
// negative position if neither occurs.
func firstOperator(s string) (pos int, op logicalOp, skip int) {
	andPos := strings.Index(s, andToken)
	orPos := strings.Index(s, orToken)
	switch {
	case andPos < 0 && orPos < 0:
		return -1, "", 0
	case andPos < 0:
		return orPos, opOr, len(orToken)
	case orPos < 0:
		return andPos, opAnd, len(andToken)
	case andPos < orPos:
		return andPos, opAnd, len(andToken)
	default:
		return orPos, opOr, len(orToken)
	}
}

// Matches reports whether metadata — one object's (key,value) pairs —
// satisfies the query: Conditions[0]'s result folded left to right
// with each subsequent Operators[i]/Conditions[i+1] pair, mirroring
// MultiConditionQuery::matches's sequential fold. Every condition is
// evaluated; unlike the original's per-step early exit (which can skip
// a later AND once a preceding OR has already made the running result
// true), this fold never drops a condition, so "a OR b AND c" reduces
// to exactly (a OR b) AND c with no operator precedence applied.
func (cq *CompoundQuery) Matches(metadata []affixindex.Record) bool {
	if len(cq.Conditions) == 0 {
		return true
	}
	result := anyAttributeMatches(cq.Conditions[0], metadata)
	for i, op := range cq.Operators {
		next := anyAttributeMatches(cq.Conditions[i+1], metadata)
		if op == opAnd {
			result = result && next
		} else {
			result = result || next
		}
	}
	return result
}

func anyAttributeMatches(cond Condition, metadata []affixindex.Record) bool {
	for _, rec := range metadata {
		if cond.Matches(rec.Key, rec.Value) {
			return true
		}
	}
	return false
}

// Execute evaluates the query against every object snapshot from idx
// and returns the sorted, deduplicated set of matching object ids.
func (cq *CompoundQuery) Execute(idx *affixindex.Index) []int64 {
	snapshot := idx.Snapshot()
	results := make([]int64, 0)
	for objectID, metadata := range snapshot {
		if cq.Matches(metadata) {
			results = append(results, objectID)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	return results
}
