package memory

import (
	"context"
	"slices"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
)

// --- users ---

func (r *repo) CreateUser(_ context.Context, u *domain.User) error {
	st, unlock := r.lock()
	defer unlock()

	live := func(x domain.User) bool { return !x.State.IsDeleted() }
	if u.Email != "" && st.users.any(func(x domain.User) bool { return live(x) && x.Email == u.Email }) {
		return &domain.ErrDuplicate{Key: "users_email_key"}
	}
	if u.Phone != "" && st.users.any(func(x domain.User) bool { return live(x) && x.Phone == u.Phone }) {
		return &domain.ErrDuplicate{Key: "users_phone_key"}
	}
	u.ID = newID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	st.users.put(u.ID, *u)
	return nil
}

func (r *repo) GetUser(_ context.Context, id string) (*domain.User, error) {
	st, unlock := r.lock()
	defer unlock()

	u, ok := st.users.get(id)
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r *repo) FindUserByPhone(_ context.Context, phone string) (*domain.User, error) {
	st, unlock := r.lock()
	defer unlock()

	u, ok := st.users.latest(func(x domain.User) bool { return x.Phone == phone && !x.State.IsDeleted() })
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *repo) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	st, unlock := r.lock()
	defer unlock()

	u, ok := st.users.latest(func(x domain.User) bool { return x.Email == email && !x.State.IsDeleted() })
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *repo) SetUserState(_ context.Context, id string, state domain.RecordState) error {
	st, unlock := r.lock()
	defer unlock()

	u, ok := st.users.get(id)
	if !ok {
		return notFound("user", id)
	}
	u.State = state
	st.users.put(id, u)
	return nil
}

func (r *repo) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	st, unlock := r.lock()
	defer unlock()

	u, ok := st.users.get(id)
	if !ok {
		return notFound("user", id)
	}
	u.PasswordHash = passwordHash
	st.users.put(id, u)
	return nil
}

// --- roles ---

func (r *repo) FindRoleByValue(_ context.Context, value string) (*domain.Role, error) {
	st, unlock := r.lock()
	defer unlock()

	role, ok := st.roles.latest(func(x domain.Role) bool { return x.Value == value })
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func (r *repo) UserHasRole(_ context.Context, userID, roleID string) (bool, error) {
	st, unlock := r.lock()
	defer unlock()

	_, ok := st.userRoles.get(userID + "/" + roleID)
	return ok, nil
}

func (r *repo) RoleAssigned(_ context.Context, roleID string) (bool, error) {
	st, unlock := r.lock()
	defer unlock()

	return st.userRoles.any(func(x userRole) bool { return x.RoleID == roleID }), nil
}

func (r *repo) AssignRole(_ context.Context, userID, roleID string) error {
	st, unlock := r.lock()
	defer unlock()

	if _, ok := st.users.get(userID); !ok {
		return notFound("user", userID)
	}
	if _, ok := st.roles.get(roleID); !ok {
		return notFound("role", roleID)
	}
	st.userRoles.put(userID+"/"+roleID, userRole{UserID: userID, RoleID: roleID})
	return nil
}

func (r *repo) RolePermissions(_ context.Context, userID, roleValue string) (*domain.Grants, error) {
	st, unlock := r.lock()
	defer unlock()

	grants := &domain.Grants{Roles: []string{}, Permissions: []string{}}
	for _, ur := range st.userRoles.filter(func(x userRole) bool { return x.UserID == userID }) {
		role, ok := st.roles.get(ur.RoleID)
		if !ok || role.Value != roleValue {
			continue
		}
		grants.Roles = append(grants.Roles, role.Value)
		for _, p := range st.permissions[role.Value] {
			if !slices.Contains(grants.Permissions, p) {
				grants.Permissions = append(grants.Permissions, p)
			}
		}
	}
	return grants, nil
}

// --- otp challenges ---

func (r *repo) InvalidateChallenges(_ context.Context, identifier string, t domain.OtpType, now time.Time) error {
	st, unlock := r.lock()
	defer unlock()

	for _, c := range st.otps.filter(func(x domain.OtpChallenge) bool {
		return x.Identifier == identifier && x.Type == t && !x.IsUsed
	}) {
		c.IsUsed = true
		if c.ExpiresAt.After(now) {
			c.ExpiresAt = now
		}
		st.otps.put(c.ID, c)
	}
	return nil
}

func (r *repo) CreateChallenge(_ context.Context, c *domain.OtpChallenge) error {
	st, unlock := r.lock()
	defer unlock()

	c.ID = newID(c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	st.otps.put(c.ID, *c)
	return nil
}

func (r *repo) LatestUnusedChallenge(_ context.Context, identifier string, t domain.OtpType) (*domain.OtpChallenge, error) {
	st, unlock := r.lock()
	defer unlock()

	c, ok := st.otps.latest(func(x domain.OtpChallenge) bool {
		return x.Identifier == identifier && x.Type == t && !x.IsUsed
	})
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) CountLiveChallenges(_ context.Context, identifier string, t domain.OtpType, now time.Time) (int, error) {
	st, unlock := r.lock()
	defer unlock()

	live := st.otps.filter(func(x domain.OtpChallenge) bool {
		return x.Identifier == identifier && x.Type == t && x.Live(now)
	})
	return len(live), nil
}

func (r *repo) MarkChallengeUsed(_ context.Context, id string, now time.Time) error {
	st, unlock := r.lock()
	defer unlock()

	c, ok := st.otps.get(id)
	if !ok {
		return notFound("otp", id)
	}
	c.IsUsed = true
	if c.ExpiresAt.After(now) {
		c.ExpiresAt = now
	}
	st.otps.put(id, c)
	return nil
}

func (r *repo) ClaimChallengeAttempt(_ context.Context, id string, maxAttempts int) (int, bool, error) {
	st, unlock := r.lock()
	defer unlock()

	c, ok := st.otps.get(id)
	if !ok || c.IsUsed || c.Attempts >= maxAttempts {
		return 0, false, nil
	}
	c.Attempts++
	st.otps.put(id, c)
	return c.Attempts, true, nil
}

func (r *repo) ConsumeChallenge(_ context.Context, id string, now time.Time) (bool, error) {
	st, unlock := r.lock()
	defer unlock()

	c, ok := st.otps.get(id)
	if !ok || c.IsUsed {
		return false, nil
	}
	c.IsUsed = true
	if c.ExpiresAt.After(now) {
		c.ExpiresAt = now
	}
	st.otps.put(id, c)
	return true, nil
}

// --- registration sessions ---

func (r *repo) CreateSession(_ context.Context, s *domain.RegistrationSession) error {
	st, unlock := r.lock()
	defer unlock()

	s.ID = newID(s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	st.sessions.put(s.ID, *s)
	return nil
}

func (r *repo) GetSession(_ context.Context, id string) (*domain.RegistrationSession, error) {
	st, unlock := r.lock()
	defer unlock()

	s, ok := st.sessions.get(id)
	if !ok {
		return nil, notFound("session", id)
	}
	return &s, nil
}

func (r *repo) updateSession(id string, fn func(*domain.RegistrationSession)) error {
	st, unlock := r.lock()
	defer unlock()

	s, ok := st.sessions.get(id)
	if !ok {
		return notFound("session", id)
	}
	fn(&s)
	st.sessions.put(id, s)
	return nil
}

func (r *repo) MarkPhoneVerified(_ context.Context, id string) error {
	return r.updateSession(id, func(s *domain.RegistrationSession) { s.PhoneVerified = true })
}

func (r *repo) AttachSessionEmail(_ context.Context, id, email string) error {
	return r.updateSession(id, func(s *domain.RegistrationSession) {
		s.Email = email
		s.EmailVerified = false
	})
}

func (r *repo) MarkEmailVerified(_ context.Context, id string) error {
	return r.updateSession(id, func(s *domain.RegistrationSession) { s.EmailVerified = true })
}

func (r *repo) ConsumeSession(_ context.Context, id string) error {
	return r.updateSession(id, func(s *domain.RegistrationSession) { s.State = domain.StateDeleted })
}
