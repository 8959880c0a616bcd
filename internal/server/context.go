package server

import (
	"context"

	"github.com/wirelog/wirelog/internal/accesslog"
)

type extraHolderKey struct{}

// extraHolder collects extra fields attached by application code during a
// request. It is owned by the request's handling goroutine.
type extraHolder struct {
	fields accesslog.Map
}

func withExtraHolder(ctx context.Context, holder *extraHolder) context.Context {
	return context.WithValue(ctx, extraHolderKey{}, holder)
}

// AddExtraFields merges fields into the current request's access-log
// record. They land at the top level of the final record, overwriting any
// same-named builder-produced field. No-op outside an access-logged
// request.
func AddExtraFields(ctx context.Context, fields accesslog.Map) {
	holder, ok := ctx.Value(extraHolderKey{}).(*extraHolder)
	if !ok {
		return
	}
	if holder.fields == nil {
		holder.fields = accesslog.Map{}
	}
	for k, v := range fields {
		holder.fields[k] = v
	}
}
