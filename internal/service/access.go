package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/observability"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accessTracer = otel.Tracer("service/access")

const grantsCache = "roles"

// AccessControl assigns roles and answers role/permission questions. Grants
// are cached per (user, role).
type AccessControl struct {
	store   port.Store
	cache   port.Cache[*domain.Grants]
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewAccessControl(store port.Store, cache port.Cache[*domain.Grants], metrics *observability.Metrics, logger *zap.Logger) *AccessControl {
	return &AccessControl{store: store, cache: cache, metrics: metrics, logger: logger}
}

func grantsKey(userID, roleValue string) string {
	return userID + "/" + roleValue
}

// AssignRole gives userID the role. Pass the caller's unit of work so the
// assignment commits or rolls back with it, then call Invalidate once the
// unit of work has committed. With a nil repos the write is immediate and
// the cached grants are dropped here. Assigning a held role is a no-op.
func (a *AccessControl) AssignRole(ctx context.Context, repos port.Repositories, userID, roleValue string) error {
	ctx, span := accessTracer.Start(ctx, "AccessControl.AssignRole")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("role", roleValue))

	direct := repos == nil
	if direct {
		repos = a.store
	}
	role, err := repos.FindRoleByValue(ctx, roleValue)
	if err != nil {
		return fmt.Errorf("find role: %w", err)
	}
	if role == nil {
		return &domain.ErrNotFound{Resource: "role", ID: roleValue}
	}

	has, err := repos.UserHasRole(ctx, userID, role.ID)
	if err != nil {
		return fmt.Errorf("check user role: %w", err)
	}
	if !has {
		if err := repos.AssignRole(ctx, userID, role.ID); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
	}
	if direct {
		a.Invalidate(userID, roleValue)
	}
	return nil
}

// Invalidate drops the cached grants of userID for roleValue.
func (a *AccessControl) Invalidate(userID, roleValue string) {
	a.cache.Delete(grantsKey(userID, roleValue))
}

// RolesAndPermissions returns the grants userID holds through roleValue.
func (a *AccessControl) RolesAndPermissions(ctx context.Context, userID, roleValue string) (*domain.Grants, error) {
	ctx, span := accessTracer.Start(ctx, "AccessControl.RolesAndPermissions")
	defer span.End()

	key := grantsKey(userID, roleValue)
	if g, ok := a.cache.Get(key); ok {
		a.metrics.IncrCacheHit(grantsCache)
		return g, nil
	}
	a.metrics.IncrCacheMiss(grantsCache)

	g, err := a.store.RolePermissions(ctx, userID, roleValue)
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	a.cache.Set(key, g)
	return g, nil
}

// Authorize checks token grants against the roles and permissions a route
// requires. super_admin passes every check. Either list may be empty.
func (a *AccessControl) Authorize(claims *port.TokenClaims, roles, permissions []string) error {
	if claims == nil {
		return &domain.ErrUnauthorized{Message: "Authentication required"}
	}
	if slices.Contains(claims.Roles, domain.RoleSuperAdmin) {
		return nil
	}
	if len(roles) > 0 && !intersects(claims.Roles, roles) {
		return &domain.ErrForbidden{Action: "ACCESS DENIED (Role required)"}
	}
	if len(permissions) > 0 && !intersects(claims.Permissions, permissions) {
		return &domain.ErrForbidden{Action: "ACCESS DENIED (Permission required)"}
	}
	return nil
}

func intersects(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
