// Package graph serves the portal GraphQL API with graph-gophers/graphql-go.
package graph

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"maternar/internal/events"
	"maternar/models"
	"maternar/services"
)

//go:embed schema.graphql
var schemaSDL string

// Resolver is the root resolver for queries, mutations and subscriptions.
type Resolver struct {
	svc    *services.Services
	bus    events.Bus
	logger *slog.Logger
}

// NewSchema parses the schema and binds it to the services.
func NewSchema(svc *services.Services, bus events.Bus, logger *slog.Logger) (*graphql.Schema, error) {
	r := &Resolver{svc: svc, bus: bus, logger: logger}
	return graphql.ParseSchema(schemaSDL, r, graphql.MaxDepth(12))
}

// publicError is what clients see in errors[].message; the code goes to
// extensions.
type publicError struct {
	msg  string
	code string
}

func (e *publicError) Error() string { return e.msg }

func (e *publicError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

var kindCodes = map[services.Kind]string{
	services.KindInternal:        "INTERNAL",
	services.KindValidation:      "BAD_USER_INPUT",
	services.KindUnauthenticated: "UNAUTHENTICATED",
	services.KindForbidden:       "FORBIDDEN",
	services.KindNotFound:        "NOT_FOUND",
	services.KindRateLimited:     "RATE_LIMITED",
}

// fail converts a service error into its public form. Internal errors are
// logged here and never shown.
func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	kind, msg := services.Classify(err)
	if kind == services.KindInternal {
		r.logger.Error("graphql resolver failed", "op", op, "error", err)
	}
	return &publicError{msg: msg, code: kindCodes[kind]}
}

// viewer returns the authenticated user or a public unauthenticated error.
func (r *Resolver) viewer(ctx context.Context) (*models.User, error) {
	u, err := services.RequireUser(ctx)
	if err != nil {
		return nil, r.fail(ctx, "viewer", err)
	}
	return u, nil
}

func toID(id uint) graphql.ID {
	return graphql.ID(strconv.FormatUint(uint64(id), 10))
}

func parseID(id graphql.ID) (uint, error) {
	n, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil || n == 0 {
		return 0, services.NewValidationError(fmt.Sprintf("invalid id %q", string(id)))
	}
	return uint(n), nil
}

func optID(id *graphql.ID) (*uint, error) {
	if id == nil {
		return nil, nil
	}
	n, err := parseID(*id)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func gqlTime(t time.Time) graphql.Time {
	return graphql.Time{Time: t}
}

func optTime(t *time.Time) *graphql.Time {
	if t == nil {
		return nil
	}
	return &graphql.Time{Time: *t}
}

func fromOptTime(t *graphql.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOr(p *int32, def int) int {
	if p == nil {
		return def
	}
	return int(*p)
}
