package quality

import (
	"fmt"
	"math"

	"github.com/angelitadias/ETL-Pipeline-API/internal/dfutil"
	"github.com/go-gota/gota/dataframe"
)

// Violation identifies the first rule a record set failed and the column it
// was evaluating. It is the only error type Evaluate produces for rule
// failures, so callers can surface a precise message.
type Violation struct {
	Rule    string
	Column  string
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("rule %q violated on column %q: %s", v.Rule, v.Column, v.Message)
}

// Rule checks one property of a record set.
type Rule interface {
	Name() string
	Check(df dataframe.DataFrame) *Violation
}

// Evaluate applies rules in order and stops at the first violation. For a
// fixed input and rule set the verdict is deterministic.
func Evaluate(df dataframe.DataFrame, rules []Rule) error {
	for _, rule := range rules {
		if v := rule.Check(df); v != nil {
			return v
		}
	}
	return nil
}

// NotNull fails when any of its columns is missing or holds a null value.
type NotNull struct {
	Columns []string
}

func (NotNull) Name() string { return "required-columns-non-null" }

func (r NotNull) Check(df dataframe.DataFrame) *Violation {
	for _, col := range r.Columns {
		if !dfutil.HasColumn(df, col) {
			return &Violation{Rule: r.Name(), Column: col, Message: "column not found"}
		}
		s := df.Col(col)
		for i := 0; i < s.Len(); i++ {
			if s.Elem(i).IsNA() {
				return &Violation{Rule: r.Name(), Column: col, Message: fmt.Sprintf("null value at row %d", i)}
			}
		}
	}
	return nil
}

// Range fails when a value falls outside [Min, Max]. Nulls and non-numeric
// values count as out of range.
type Range struct {
	Column string
	Min    float64
	Max    float64
}

func (Range) Name() string { return "bounded-range" }

func (r Range) Check(df dataframe.DataFrame) *Violation {
	if !dfutil.HasColumn(df, r.Column) {
		return &Violation{Rule: r.Name(), Column: r.Column, Message: "column not found"}
	}
	s := df.Col(r.Column)
	for i := 0; i < s.Len(); i++ {
		v := s.Elem(i).Float()
		if math.IsNaN(v) {
			return &Violation{Rule: r.Name(), Column: r.Column, Message: fmt.Sprintf("non-numeric value at row %d", i)}
		}
		if v < r.Min || v > r.Max {
			return &Violation{
				Rule:    r.Name(),
				Column:  r.Column,
				Message: fmt.Sprintf("value %v at row %d outside [%v, %v]", v, i, r.Min, r.Max),
			}
		}
	}
	return nil
}

// NonNegative fails when a value is negative or non-numeric.
type NonNegative struct {
	Column string
}

func (NonNegative) Name() string { return "non-negative" }

func (r NonNegative) Check(df dataframe.DataFrame) *Violation {
	if !dfutil.HasColumn(df, r.Column) {
		return &Violation{Rule: r.Name(), Column: r.Column, Message: "column not found"}
	}
	s := df.Col(r.Column)
	for i := 0; i < s.Len(); i++ {
		v := s.Elem(i).Float()
		if math.IsNaN(v) {
			return &Violation{Rule: r.Name(), Column: r.Column, Message: fmt.Sprintf("non-numeric value at row %d", i)}
		}
		if v < 0 {
			return &Violation{Rule: r.Name(), Column: r.Column, Message: fmt.Sprintf("negative value %v at row %d", v, i)}
		}
	}
	return nil
}
