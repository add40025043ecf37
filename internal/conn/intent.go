package conn

import "context"

// Intent tags a logical database operation as read or write. The calling
// application layer sets it per operation; this package only consults it.
type Intent int

const (
	// IntentWrite targets the shard primary. It is the default: an unmarked
	// operation never silently reads possibly-stale replica data.
	IntentWrite Intent = iota
	// IntentRead allows routing to a healthy replica.
	IntentRead
)

func (i Intent) String() string {
	if i == IntentRead {
		return "read"
	}
	return "write"
}

type intentKey struct{}

// WithReadIntent returns a context marking the operation read-intent.
func WithReadIntent(ctx context.Context) context.Context {
	return context.WithValue(ctx, intentKey{}, IntentRead)
}

// WithWriteIntent returns a context marking the operation write-intent.
func WithWriteIntent(ctx context.Context) context.Context {
	return context.WithValue(ctx, intentKey{}, IntentWrite)
}

// IntentFromContext returns the operation's intent, defaulting to write.
func IntentFromContext(ctx context.Context) Intent {
	if v := ctx.Value(intentKey{}); v != nil {
		return v.(Intent)
	}
	return IntentWrite
}
