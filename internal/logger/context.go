package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every record logged with the context.
type LogFields struct {
	RequestID string
	UserID    *uint
	Role      string
	Component string
}

// WithLogFields merges fields into ctx. Non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := GetLogFields(ctx)
	if fields.RequestID != "" {
		merged.RequestID = fields.RequestID
	}
	if fields.UserID != nil {
		merged.UserID = fields.UserID
	}
	if fields.Role != "" {
		merged.Role = fields.Role
	}
	if fields.Component != "" {
		merged.Component = fields.Component
	}
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func Ptr[T any](v T) *T {
	return &v
}
