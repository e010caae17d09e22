// Package query implements the multi-condition and range query
// grammars layered on top of the per-server affix index: `cond (
// ("AND"|"OR") cond )*` conditions with comparison/string operators,
// and `key in range [min to max]` numeric or date ranges. Grounded on
// original_source/src4/query's MultiConditionQuery and RangeQuery.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sashank1508/idioms/internal/errs"
)

// Operator is one of the ten comparison/string operators a Condition
// may use.
type Operator int

const (
	Equals Operator = iota
	NotEquals
	GreaterThan
	LessThan
	GreaterEqual
	LessEqual
	Contains
	StartsWith
	EndsWith
	RegexMatch
)

func (o Operator) String() string {
	switch o {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case GreaterEqual:
		return ">="
	case LessEqual:
		return "<="
	case Contains:
		return "contains"
	case StartsWith:
		return "startsWith"
	case EndsWith:
		return "endsWith"
	case RegexMatch:
		return "~="
	default:
		return "unknown"
	}
}

// operatorTokens is ordered so that multi-character/longer tokens are
// detected before the single-character ones they could otherwise be
// mistaken for (">=" before ">", "contains" before "="-less scans).
var operatorTokens = []struct {
	token string
	op    Operator
}{
	{">=", GreaterEqual},
	{"<=", LessEqual},
	{"!=", NotEquals},
	{"~=", RegexMatch},
	{"contains", Contains},
	{"startsWith", StartsWith},
	{"endsWith", EndsWith},
	{">", GreaterThan},
	{"<", LessThan},
	{"=", Equals},
}

// Condition is a single `key <op> value` term.
type Condition struct {
	Key              string
	Value            string
	Op               Operator
	KeyHasWildcard   bool
	ValueHasWildcard bool
}

// ParseCondition parses a single condition string such as
// `instrument = CCD*` or `exposureTime >= 100`. Operators are tried in
// operatorTokens' fixed priority order and the first one present
// anywhere in s wins, matching QueryCondition::fromString's if/else-if
// chain — not the leftmost occurrence across all operators, which
// would pick "=" over ">" in a string like "path=/data>report".
func ParseCondition(s string) (Condition, error) {
	var tokenAt int = -1
	var matched struct {
		token string
		op    Operator
	}
	for _, cand := range operatorTokens {
		idx := strings.Index(s, cand.token)
		if idx == -1 {
			continue
		}
		tokenAt = idx
		matched = cand
		break
	}
	if tokenAt == -1 {
		return Condition{}, errs.New(errs.CodeParse, "no operator found in condition: "+s)
	}

	key := strings.TrimSpace(s[:tokenAt])
	value := strings.TrimSpace(s[tokenAt+len(matched.token):])
	return Condition{
		Key:              key,
		Value:            value,
		Op:               matched.op,
		KeyHasWildcard:   hasWildcard(key),
		ValueHasWildcard: hasWildcard(value),
	}, nil
}

// Matches reports whether (testKey, testValue) — one attribute of an
// object's metadata — satisfies this condition.
func (c Condition) Matches(testKey, testValue string) bool {
	if c.KeyHasWildcard {
		if !matchGlob(testKey, c.Key) {
			return false
		}
	} else if testKey != c.Key {
		return false
	}

	switch c.Op {
	case Equals:
		if c.ValueHasWildcard {
			return matchGlob(testValue, c.Value)
		}
		return testValue == c.Value
	case NotEquals:
		if c.ValueHasWildcard {
			return !matchGlob(testValue, c.Value)
		}
		return testValue != c.Value
	case GreaterThan, LessThan, GreaterEqual, LessEqual:
		return compareOrdered(c.Op, testValue, c.Value)
	case Contains:
		return strings.Contains(testValue, c.Value)
	case StartsWith:
		return strings.HasPrefix(testValue, c.Value)
	case EndsWith:
		return strings.HasSuffix(testValue, c.Value)
	case RegexMatch:
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return false
		}
		return re.MatchString(testValue)
	default:
		return false
	}
}

// compareOrdered compares testValue against value numerically when
// both parse as numbers, and lexicographically otherwise, per the
// original's fallback rule.
func compareOrdered(op Operator, testValue, value string) bool {
	tNum, tOK := parseNumeric(testValue)
	vNum, vOK := parseNumeric(value)
	if tOK && vOK {
		switch op {
		case GreaterThan:
			return tNum > vNum
		case LessThan:
			return tNum < vNum
		case GreaterEqual:
			return tNum >= vNum
		case LessEqual:
			return tNum <= vNum
		}
	}
	switch op {
	case GreaterThan:
		return testValue > value
	case LessThan:
		return testValue < value
	case GreaterEqual:
		return testValue >= value
	case LessEqual:
		return testValue <= value
	}
	return false
}

func parseNumeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// matchGlob matches s against a '*'/'?' glob pattern, converting it to
// an anchored regular expression the way the original's
// normalizeWildcardPattern does.
func matchGlob(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
