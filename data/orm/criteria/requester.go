package criteria

import "context"

type requesterKey struct{}

// WithRequester 在上下文中记录请求者标识，供 OwnedBy 等条件读取。
func WithRequester(ctx context.Context, requester any) context.Context {
	return context.WithValue(ctx, requesterKey{}, requester)
}

// RequesterFrom 读取请求者标识。
func RequesterFrom(ctx context.Context) (any, bool) {
	v := ctx.Value(requesterKey{})
	if v == nil {
		return nil, false
	}
	return v, true
}
