package middleware

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/leadbook/internal/auth"
	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/logging"
)

// ActorHeader names the acting agent when authentication is disabled.
const ActorHeader = "X-Actor-ID"

// DevActorID is used when authentication is disabled and no ActorHeader
// was sent.
const DevActorID = "local-dev"

// Authenticate resolves the actor for each request and stores it with
// core.ContextWithActor.
//
// With required set, a valid "Authorization: Bearer <jwt>" is mandatory
// and anything else is rejected with 401. Without it, a bearer token is
// still honoured when valid, otherwise ActorHeader or DevActorID names
// the actor.
func Authenticate(tokens *auth.TokenProvider, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := actorFromRequest(r, tokens)
			if err != nil && required {
				logging.FromContext(r.Context()).Warn("auth: rejected request",
					"path", r.URL.Path,
					"method", r.Method,
					"ip", r.RemoteAddr,
					"error", err,
				)
				rejectJSON(w, core.ErrUnauthenticated, http.StatusUnauthorized)
				return
			}
			if err != nil {
				actor = core.Actor{ID: strings.TrimSpace(r.Header.Get(ActorHeader))}
				if actor.ID == "" {
					actor.ID = DevActorID
				}
			}

			ctx := core.ContextWithActor(r.Context(), actor)
			ctx = logging.ContextWith(ctx, "actor", actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFromRequest(r *http.Request, tokens *auth.TokenProvider) (core.Actor, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return core.Actor{}, core.ErrUnauthenticated
	}
	if tokens == nil {
		return core.Actor{}, auth.ErrInvalidToken
	}

	claims, err := tokens.Validate(strings.TrimSpace(token))
	if err != nil {
		return core.Actor{}, err
	}
	return core.Actor{ID: claims.Subject, Email: claims.Email}, nil
}
