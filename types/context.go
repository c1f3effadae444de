package types

import (
	"context"
	"fmt"
	"strings"
)

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyJobID   contextKey = "job_id"
	keyTraceID contextKey = "trace_id"
)

// WithJobID adds job ID to context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, keyJobID, jobID)
}

// JobID extracts job ID from context.
func JobID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyJobID).(string)
	return v, ok && v != ""
}

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// Urgency 任务紧急程度
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// TaskContext 是调用方随任务声明的上下文
type TaskContext struct {
	// Language 声明的语言代码（如 "en"、"ar"），可为空
	Language string `json:"language,omitempty"`
	// Urgency 紧急程度，空值视为 normal
	Urgency Urgency `json:"urgency,omitempty"`
}

// Normalize returns a canonical copy of the context. Unknown urgency values and
// malformed language codes are replaced by defaults; the returned error (code
// CLASSIFICATION) describes what was substituted and is informational only.
func (c TaskContext) Normalize() (TaskContext, error) {
	out := TaskContext{
		Language: strings.ToLower(strings.TrimSpace(c.Language)),
		Urgency:  Urgency(strings.ToLower(strings.TrimSpace(string(c.Urgency)))),
	}

	var problems []string
	switch out.Urgency {
	case UrgencyLow, UrgencyNormal, UrgencyHigh:
	case "":
		out.Urgency = UrgencyNormal
	default:
		problems = append(problems, fmt.Sprintf("unknown urgency %q", c.Urgency))
		out.Urgency = UrgencyNormal
	}

	if out.Language != "" && !validLanguageCode(out.Language) {
		problems = append(problems, fmt.Sprintf("malformed language code %q", c.Language))
		out.Language = ""
	}

	if len(problems) > 0 {
		return out, NewError(ErrClassification, strings.Join(problems, "; "))
	}
	return out, nil
}

// ContextFromMap builds a TaskContext from loosely typed input (decoded JSON).
// Fields of the wrong type are dropped and reported through the error.
func ContextFromMap(m map[string]any) (TaskContext, error) {
	var (
		tc       TaskContext
		problems []string
	)
	if v, ok := m["language"]; ok && v != nil {
		if s, ok := v.(string); ok {
			tc.Language = s
		} else {
			problems = append(problems, fmt.Sprintf("language has type %T", v))
		}
	}
	if v, ok := m["urgency"]; ok && v != nil {
		if s, ok := v.(string); ok {
			tc.Urgency = Urgency(s)
		} else {
			problems = append(problems, fmt.Sprintf("urgency has type %T", v))
		}
	}

	norm, err := tc.Normalize()
	if err != nil {
		problems = append(problems, err.(*Error).Message)
	}
	if len(problems) > 0 {
		return norm, NewError(ErrClassification, strings.Join(problems, "; "))
	}
	return norm, nil
}

// validLanguageCode accepts "en", "ar", "pt-br" style codes.
func validLanguageCode(code string) bool {
	if len(code) < 2 || len(code) > 8 {
		return false
	}
	for i, r := range code {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '-' && i >= 2 && i < len(code)-1:
		default:
			return false
		}
	}
	return true
}
