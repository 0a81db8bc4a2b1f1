package instrument

import "context"

type correlationIDKey struct{}

// HeaderCorrelationID is the message header that carries the correlation ID across the broker.
const HeaderCorrelationID = "cID"

// SetCorrelationID stores the correlation ID in ctx.
func SetCorrelationID(ctx context.Context, cID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cID)
}

// GetCorrelationID returns the correlation ID stored in ctx, or "" when absent.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	cID, _ := ctx.Value(correlationIDKey{}).(string)
	return cID
}
