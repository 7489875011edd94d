// Package service: AuthService handles super admin bootstrap, role-scoped
// logins and password changes.
package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthService orchestrates authentication flows.
type AuthService struct {
	store  port.Store
	access *AccessControl
	hasher port.HashingService
	tokens port.TokenService
	logger *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.Store, access *AccessControl, hasher port.HashingService, tokens port.TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:  store,
		access: access,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// ============================================================
// CreateSuperAdmin: POST /v1/auth/super-admin
// ============================================================

// CreateSuperAdmin bootstraps the single super admin account. It runs
// SERIALIZABLE so two concurrent calls cannot both pass the existence check.
func (s *AuthService) CreateSuperAdmin(ctx context.Context, req *domain.CreateSuperAdminRequest) (*domain.SuperAdminResult, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.CreateSuperAdmin")
	defer span.End()

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		State:        domain.StateActive,
	}
	err = inTx(ctx, s.store, port.Serializable, func(uow port.UnitOfWork) error {
		role, err := uow.FindRoleByValue(ctx, domain.RoleSuperAdmin)
		if err != nil {
			return fmt.Errorf("find role: %w", err)
		}
		if role == nil {
			return &domain.ErrValidation{Field: "role", Message: "Superadmin role does not exist in roles table"}
		}

		taken, err := uow.RoleAssigned(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("check super admin: %w", err)
		}
		if taken {
			return &domain.ErrConflict{Code: domain.ConflictSuperAdminExists, Message: "Super Admin already exists"}
		}

		existing, err := uow.FindUserByEmail(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if existing != nil {
			return &domain.ErrConflict{Code: domain.ConflictEmailTaken, Message: "User already exists with this email"}
		}

		if err := uow.CreateUser(ctx, user); err != nil {
			if dup, ok := asDuplicate(err); ok {
				if dup.Key == "users_email_key" {
					return &domain.ErrConflict{Code: domain.ConflictEmailTaken, Message: "User already exists with this email"}
				}
				return &domain.ErrConflict{Code: domain.ConflictPhoneRegistered, Message: "Phone number is already registered"}
			}
			return fmt.Errorf("create user: %w", err)
		}
		return s.access.AssignRole(ctx, uow, user.ID, domain.RoleSuperAdmin)
	})
	if err != nil {
		return nil, err
	}
	s.access.Invalidate(user.ID, domain.RoleSuperAdmin)

	s.logger.Info("super admin created", zap.String("user_id", user.ID))
	return &domain.SuperAdminResult{
		Success: true,
		Message: "Super Admin created successfully",
		UserID:  user.ID,
	}, nil
}

// ============================================================
// Login: POST /v1/auth/super-admin-login, /v1/auth/company-login
// ============================================================

// SuperAdminLogin authenticates the super admin.
func (s *AuthService) SuperAdminLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SuperAdminLogin")
	defer span.End()

	user, err := s.activeUser(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(user, req.Password); err != nil {
		return nil, err
	}
	resp, err := s.login(ctx, user, domain.RoleSuperAdmin, "Access denied. Only super_admin can login here.")
	if err != nil {
		return nil, err
	}
	resp.Message = "Super Admin login successful"
	return resp, nil
}

// CompanyLogin authenticates a company user with an approved profile.
func (s *AuthService) CompanyLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.CompanyLogin")
	defer span.End()

	user, err := s.activeUser(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	company, err := s.store.FindActiveCompanyByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	if company == nil {
		s.logger.Warn("login: no active company profile", zap.String("user_id", user.ID))
		return nil, &domain.ErrUnauthorized{Message: "Unauthorized access"}
	}
	if err := s.checkPassword(user, req.Password); err != nil {
		return nil, err
	}
	resp, err := s.login(ctx, user, domain.RoleCompany, "Access denied. Only company users can login here.")
	if err != nil {
		return nil, err
	}
	resp.Message = "Company login successful"
	resp.User.Company = company
	return resp, nil
}

func (s *AuthService) activeUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || user.State.IsDeleted() {
		return nil, &domain.ErrValidation{Field: "email", Message: "User not exist"}
	}
	return user, nil
}

func (s *AuthService) checkPassword(user *domain.User, password string) error {
	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn("login: invalid credentials", zap.String("user_id", user.ID))
		return &domain.ErrUnauthorized{Message: "Invalid email or password"}
	}
	return nil
}

func (s *AuthService) login(ctx context.Context, user *domain.User, roleValue, denied string) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.login")
	defer span.End()
	span.SetAttributes(attribute.String("role", roleValue))

	grants, err := s.access.RolesAndPermissions(ctx, user.ID, roleValue)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(grants.Roles, roleValue) {
		return nil, &domain.ErrForbidden{Action: denied}
	}

	token, err := s.tokens.Issue(port.TokenClaims{
		UserID:      user.ID,
		Email:       user.Email,
		Phone:       user.Phone,
		Roles:       grants.Roles,
		Permissions: grants.Permissions,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", roleValue))
	return &domain.LoginResponse{
		Success:     true,
		AccessToken: token,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		User: domain.UserProfile{
			ID:          user.ID,
			Email:       user.Email,
			Phone:       user.Phone,
			FullName:    user.FullName,
			Roles:       grants.Roles,
			Permissions: grants.Permissions,
		},
	}, nil
}

// ============================================================
// UpdatePassword: POST /v1/auth/update-password
// ============================================================

func (s *AuthService) UpdatePassword(ctx context.Context, userID string, req *domain.UpdatePasswordRequest) (*domain.ActionResult, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.UpdatePassword")
	defer span.End()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.ErrNotFound{Resource: "user", ID: userID, Message: "No user found with given credentials"}
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return nil, &domain.ErrValidation{Field: "oldPassword", Message: "Invalid old password"}
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password updated", zap.String("user_id", user.ID))
	return &domain.ActionResult{Success: true, Message: "Password updated successfully"}, nil
}
