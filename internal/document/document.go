// Package document defines the object model stored in buckets: schemaless
// JSON objects keyed by a generated identifier, plus the total value
// ordering used when listing a bucket sorted by a field.
package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ObjectID is the reserved field holding an object's identifier.
// It is assigned once at creation and never changed by updates.
const ObjectID = "__objectId"

// Object is a single schemaless document. Values are whatever
// encoding/json produces: nil, bool, float64, string, []any, map[string]any.
type Object map[string]any

// NewID returns a fresh unique object identifier.
func NewID() string {
	return uuid.NewString()
}

// ID returns the object's identifier, or "" when unset or not a string.
func (o Object) ID() string {
	id, _ := o[ObjectID].(string)
	return id
}

// Clone returns a copy of the object. The copy is shallow: nested values
// are shared, which is safe because objects are never mutated in place.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	c := make(Object, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Merge returns a new object with every field of patch applied over o.
// The identifier field is skipped: patches cannot reassign it.
// Neither o nor patch is modified. A nil receiver merges as an empty object.
func (o Object) Merge(patch Object) Object {
	merged := o.Clone()
	if merged == nil {
		merged = make(Object, len(patch))
	}
	for k, v := range patch {
		if k == ObjectID {
			continue
		}
		merged[k] = v
	}
	return merged
}

// Compare imposes a total order on JSON values so that sorting a bucket by
// an arbitrary field is deterministic even when values have mixed types.
// Values of different types order by type rank (null < bool < number <
// string < array < object); values of the same type order by value.
// Returns -1, 0, or 1.
func Compare(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return sign(ra - rb)
	}

	switch ra {
	case rankNull:
		return 0
	case rankBool:
		av, bv := a.(bool), b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case rankNumber:
		av, _ := toFloat(a)
		bv, _ := toFloat(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case rankString:
		return strings.Compare(a.(string), b.(string))
	default:
		// Arrays, objects, and anything exotic compare by their canonical
		// JSON text. encoding/json sorts map keys, so this is deterministic.
		return strings.Compare(canonical(a), canonical(b))
	}
}

const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankArray
	rankObject
	rankOther
)

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return rankNumber
	case string:
		return rankString
	case []any:
		return rankArray
	case map[string]any, Object:
		return rankObject
	default:
		return rankOther
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
