package query

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sashank1508/idioms/internal/affixindex"
	"github.com/sashank1508/idioms/internal/errs"
)

// DateFormat names one of the three date layouts the range grammar
// accepts, grounded on RangeQuery.cpp's dateToNumeric/numericToDate.
type DateFormat int

const (
	DateFormatISO DateFormat = iota // YYYY-MM-DD, the default
	DateFormatUS                    // MM/DD/YYYY
	DateFormatEU                    // DD-MM-YYYY
)

var dateLayouts = map[DateFormat]string{
	DateFormatISO: "2006-01-02",
	DateFormatUS:  "01/02/2006",
	DateFormatEU:  "02-01-2006",
}

var dateValidators = map[DateFormat]*regexp.Regexp{
	DateFormatISO: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	DateFormatUS:  regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
	DateFormatEU:  regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`),
}

var rangePattern = regexp.MustCompile(`^(.+)\s+in\s+range\s+\[(.+)\s+to\s+(.+)\]$`)

// RangeQuery is `key in range [min to max]`, numeric or date-valued.
type RangeQuery struct {
	Key            string
	KeyHasWildcard bool
	Min, Max       float64
	IsDateRange    bool
	DateFormat     DateFormat
}

// ParseRangeQuery parses `key in range [min to max]`. A min bound
// containing '-' or '/' is treated as a date range, per the original's
// isDate heuristic; the date format is inferred from the separator and
// field widths.
func ParseRangeQuery(s string) (*RangeQuery, error) {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, errs.New(errs.CodeParse, "invalid range query: "+s)
	}
	key := strings.TrimSpace(m[1])
	minStr := strings.TrimSpace(m[2])
	maxStr := strings.TrimSpace(m[3])

	rq := &RangeQuery{Key: key, KeyHasWildcard: hasWildcard(key)}

	if strings.ContainsAny(minStr, "-/") {
		format := inferDateFormat(minStr)
		rq.IsDateRange = true
		rq.DateFormat = format
		min, err := dateToNumeric(minStr, format)
		if err != nil {
			return nil, err
		}
		max, err := dateToNumeric(maxStr, format)
		if err != nil {
			return nil, err
		}
		rq.Min, rq.Max = min, max
		return rq, nil
	}

	min, minOK := parseNumeric(minStr)
	max, maxOK := parseNumeric(maxStr)
	if !minOK || !maxOK {
		return nil, errs.New(errs.CodeParse, "non-numeric range bound in: "+s)
	}
	rq.Min, rq.Max = min, max
	return rq, nil
}

func inferDateFormat(s string) DateFormat {
	if strings.Contains(s, "/") {
		return DateFormatUS
	}
	if len(s) == 10 && s[2] == '-' {
		return DateFormatEU
	}
	return DateFormatISO
}

// InRange reports whether (testKey, testValue) falls within this
// range query's bounds, inclusive on both ends.
func (rq *RangeQuery) InRange(testKey, testValue string) bool {
	if rq.KeyHasWildcard {
		if !matchGlob(testKey, rq.Key) {
			return false
		}
	} else if testKey != rq.Key {
		return false
	}

	var numericValue float64
	if rq.IsDateRange {
		if !dateValidators[rq.DateFormat].MatchString(testValue) {
			return false
		}
		v, err := dateToNumeric(testValue, rq.DateFormat)
		if err != nil {
			return false
		}
		numericValue = v
	} else {
		v, ok := parseNumeric(testValue)
		if !ok {
			return false
		}
		numericValue = v
	}
	return numericValue >= rq.Min && numericValue <= rq.Max
}

// Execute evaluates the range query against every object in idx and
// returns the sorted, deduplicated set of matching object ids.
func (rq *RangeQuery) Execute(idx *affixindex.Index) []int64 {
	snapshot := idx.Snapshot()
	results := make([]int64, 0)
	for objectID, metadata := range snapshot {
		for _, rec := range metadata {
			if rq.InRange(rec.Key, rec.Value) {
				results = append(results, objectID)
				break
			}
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	return results
}

const epochDay = 24 * time.Hour

func dateToNumeric(dateStr string, format DateFormat) (float64, error) {
	layout, ok := dateLayouts[format]
	if !ok {
		return 0, errs.New(errs.CodeParse, "unsupported date format")
	}
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		return 0, errs.Wrap(errs.CodeParse, "invalid date: "+dateStr, err)
	}
	return float64(t.Unix()) / epochDay.Seconds(), nil
}
