package query

import (
	"strings"

	"github.com/sashank1508/idioms/internal/affixindex"
)

// Execute dispatches queryStr to the affix index's own single
// `keyPattern=valuePattern` evaluator, the range evaluator, or the
// multi-condition evaluator in this package, based on which grammar
// the string matches. This is the single entry point server.Dispatch
// uses for TagQuery, so wire/transport code never has to know which
// grammar a query string used.
func Execute(idx *affixindex.Index, queryStr string) ([]int64, error) {
	switch {
	case strings.Contains(queryStr, " in range ["):
		rq, err := ParseRangeQuery(queryStr)
		if err != nil {
			return nil, err
		}
		return rq.Execute(idx), nil

	case strings.Contains(queryStr, " AND ") || strings.Contains(queryStr, " OR "):
		cq, err := ParseCompoundQuery(queryStr)
		if err != nil {
			return nil, err
		}
		return cq.Execute(idx), nil

	default:
		return idx.ExecuteQuery(queryStr)
	}
}
