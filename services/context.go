package services

import (
	"context"

	"maternar/models"
)

type viewerKey struct{}
type clientKey struct{}

// Viewer is the authenticated caller of a request.
type Viewer struct {
	User      *models.User
	SessionID string
}

// WithViewer returns a context carrying the authenticated caller.
func WithViewer(ctx context.Context, v *Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFrom returns the caller stored by WithViewer, or nil.
func ViewerFrom(ctx context.Context) *Viewer {
	v, _ := ctx.Value(viewerKey{}).(*Viewer)
	return v
}

// RequireUser returns the authenticated user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*models.User, error) {
	v := ViewerFrom(ctx)
	if v == nil || v.User == nil {
		return nil, ErrUnauthenticated
	}
	return v.User, nil
}

func WithClientMeta(ctx context.Context, meta ClientMeta) context.Context {
	return context.WithValue(ctx, clientKey{}, meta)
}

func ClientMetaFrom(ctx context.Context) ClientMeta {
	meta, _ := ctx.Value(clientKey{}).(ClientMeta)
	return meta
}
