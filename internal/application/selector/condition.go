package selector

import (
	"strings"

	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// evaluate reports whether one condition holds against the attribute bag.
// A missing dotted path leaves the operand undefined: every comparison fails
// except not_equals and not_in, which hold vacuously.
func evaluate(cond entity.Condition, attributes map[string]interface{}) bool {
	actual, found := lookupPath(attributes, cond.Field)

	switch cond.Operator {
	case entity.OperatorEquals:
		return found && valuesEqual(actual, cond.Value)
	case entity.OperatorNotEquals:
		return !found || !valuesEqual(actual, cond.Value)
	case entity.OperatorGreaterThan:
		cmp, ok := compareValues(actual, cond.Value)
		return found && ok && cmp > 0
	case entity.OperatorLessThan:
		cmp, ok := compareValues(actual, cond.Value)
		return found && ok && cmp < 0
	case entity.OperatorGreaterThanOrEqual:
		cmp, ok := compareValues(actual, cond.Value)
		return found && ok && cmp >= 0
	case entity.OperatorLessThanOrEqual:
		cmp, ok := compareValues(actual, cond.Value)
		return found && ok && cmp <= 0
	case entity.OperatorIn:
		return found && isMember(actual, cond.Value)
	case entity.OperatorNotIn:
		return !found || !isMember(actual, cond.Value)
	default:
		return false
	}
}

// lookupPath walks a dotted path through nested string-keyed maps.
func lookupPath(attributes map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current interface{} = attributes

	for _, seg := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// compareValues orders two operands. Numbers order numerically, strings
// lexically; mixed or unorderable types report ok=false.
func compareValues(a, b interface{}) (int, bool) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}

	return 0, false
}

func isMember(needle, haystack interface{}) bool {
	switch hs := haystack.(type) {
	case []interface{}:
		for _, candidate := range hs {
			if valuesEqual(needle, candidate) {
				return true
			}
		}
	case []string:
		for _, candidate := range hs {
			if valuesEqual(needle, candidate) {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
