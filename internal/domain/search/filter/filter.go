package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a parsed filter: every must condition holds, every any-of
// group has at least one matching condition, and no must-not condition holds.
type Expression struct {
	must    []Condition
	anyOf   [][]Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must []Condition, anyOf [][]Condition, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(anyOf) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many alternative groups (max %d)", MaxConditionsPerGroup)
	}
	for _, g := range anyOf {
		if len(g) > MaxConditionsPerGroup {
			return Expression{}, fmt.Errorf("too many alternatives in group (max %d)", MaxConditionsPerGroup)
		}
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, anyOf: anyOf, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// AnyOf returns the alternative groups.
func (e Expression) AnyOf() [][]Condition { return e.anyOf }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.anyOf) == 0 && len(e.mustNot) == 0
}

// And returns a new expression holding the conditions of both.
func (e Expression) And(other Expression) Expression {
	return Expression{
		must:    append(append([]Condition(nil), e.must...), other.must...),
		anyOf:   append(append([][]Condition(nil), e.anyOf...), other.anyOf...),
		mustNot: append(append([]Condition(nil), e.mustNot...), other.mustNot...),
	}
}

// Fields returns the distinct field names referenced by the expression.
func (e Expression) Fields() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(c Condition) {
		if _, ok := seen[c.key]; ok {
			return
		}
		seen[c.key] = struct{}{}
		out = append(out, c.key)
	}
	for _, c := range e.must {
		add(c)
	}
	for _, g := range e.anyOf {
		for _, c := range g {
			add(c)
		}
	}
	for _, c := range e.mustNot {
		add(c)
	}
	return out
}

// Kind is the shape of a single filter clause.
type Kind int

const (
	// KindTerm is a single bare value (type:wav).
	KindTerm Kind = iota
	// KindPhrase is a quoted value (pack:"Field Recordings").
	KindPhrase
	// KindRange is a bracketed numeric range (duration:[0 TO 5]).
	KindRange
	// KindExists matches any value (duration:*).
	KindExists
)

// Condition is a single filter clause on one field.
type Condition struct {
	key       string
	kind      Kind
	value     string
	rangeExpr *Range
}

// NewMatch creates a bare term condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, kind: KindTerm, value: match}, nil
}

// NewPhrase creates a quoted phrase condition.
func NewPhrase(key, phrase string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if phrase == "" {
		return Condition{}, fmt.Errorf("phrase is required for key %q", key)
	}
	return Condition{key: key, kind: KindPhrase, value: phrase}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, kind: KindRange, rangeExpr: &r}, nil
}

// NewExists creates a condition matching any value of the field.
func NewExists(key string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, kind: KindExists}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Kind returns the clause shape.
func (c Condition) Kind() Kind { return c.kind }

// Value returns the term or phrase value.
func (c Condition) Value() string { return c.value }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// Range is a numeric range with gt/gte/lt/lte boundaries.
// A range with no boundaries matches every numeric value.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
