package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/helicon-hq/helicon/internal/api"
	"github.com/helicon-hq/helicon/internal/domain"
)

type contextKey string

const (
	WorkspaceIDKey contextKey = "workspace_id"
	SpaceIDKey     contextKey = "space_id"
)

// TenantContext extracts the workspace and space identity set by the product
// gateway (X-Workspace-ID / X-Space-ID) into the request context. Headers are
// optional at this layer; handlers that need a workspace use RequireWorkspace.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		workspaceID := strings.TrimSpace(r.Header.Get("X-Workspace-ID"))
		if workspaceID != "" {
			if _, err := uuid.Parse(workspaceID); err != nil {
				api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid X-Workspace-ID header")
				return
			}
			ctx = context.WithValue(ctx, WorkspaceIDKey, workspaceID)
		}

		spaceID := strings.TrimSpace(r.Header.Get("X-Space-ID"))
		if spaceID != "" {
			if _, err := uuid.Parse(spaceID); err != nil {
				api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid X-Space-ID header")
				return
			}
			ctx = context.WithValue(ctx, SpaceIDKey, spaceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireWorkspace rejects requests that did not carry a workspace identity.
func RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetWorkspaceID(r.Context()) == "" {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "missing X-Workspace-ID header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetWorkspaceID(ctx context.Context) string {
	workspaceID, _ := ctx.Value(WorkspaceIDKey).(string)
	return workspaceID
}

func GetSpaceID(ctx context.Context) string {
	spaceID, _ := ctx.Value(SpaceIDKey).(string)
	return spaceID
}
