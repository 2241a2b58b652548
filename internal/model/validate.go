package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// IssueKind classifies a problem found in a trace.
type IssueKind string

const (
	// IssueEmpty means the trace has no items.
	IssueEmpty IssueKind = "empty"
	// IssueField means a struct constraint failed, e.g. end before start.
	IssueField IssueKind = "field"
	// IssueOverlap means two consecutive ranges overlap.
	IssueOverlap IssueKind = "overlap"
	// IssueOrder means items are not sorted by start.
	IssueOrder IssueKind = "order"
)

// Issue is a non-fatal problem in a trace. Loading never fails because of one.
type Issue struct {
	Kind    IssueKind
	Index   int
	Message string
}

func (i Issue) String() string {
	if i.Index < 0 {
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
	return fmt.Sprintf("%s: item %d: %s", i.Kind, i.Index, i.Message)
}

var validate = validator.New()

// Validate checks data against the ordering and interval rules the synchronizer expects.
func Validate(data TraceData) []Issue {
	var issues []Issue

	if len(data.Items) == 0 {
		return []Issue{{Kind: IssueEmpty, Index: -1, Message: "trace has no items"}}
	}

	for idx, item := range data.Items {
		if err := validate.Struct(item.TimeRange); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					issues = append(issues, Issue{
						Kind:    IssueField,
						Index:   idx,
						Message: fmt.Sprintf("timeRange.%s fails %q (start=%g end=%g)", lowerFirst(fe.Field()), fe.Tag(), item.TimeRange.Start, item.TimeRange.End),
					})
				}
				continue
			}
			issues = append(issues, Issue{Kind: IssueField, Index: idx, Message: err.Error()})
		}
	}

	for idx := 1; idx < len(data.Items); idx++ {
		prev := data.Items[idx-1].TimeRange
		cur := data.Items[idx].TimeRange
		if cur.Start < prev.Start {
			issues = append(issues, Issue{
				Kind:    IssueOrder,
				Index:   idx,
				Message: fmt.Sprintf("start %g is before previous start %g", cur.Start, prev.Start),
			})
			continue
		}
		if cur.Start < prev.End {
			issues = append(issues, Issue{
				Kind:    IssueOverlap,
				Index:   idx,
				Message: fmt.Sprintf("[%g, %g) overlaps previous [%g, %g)", cur.Start, cur.End, prev.Start, prev.End),
			})
		}
	}

	return issues
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
