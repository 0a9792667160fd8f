package ctxutil

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
)

type requestDataKey struct{}

// RequestData is the authenticated caller of the current request.
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	Role        authz.Role
}

func (rd *RequestData) Actor() authz.Actor {
	if rd == nil {
		return authz.Actor{}
	}
	return authz.Actor{UserID: rd.UserID, Role: rd.Role}
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
