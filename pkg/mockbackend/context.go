package mockbackend

import "context"

func withUser(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey, id)
}

func userFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}
