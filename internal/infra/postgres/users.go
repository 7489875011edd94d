package postgres

import (
	"context"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const userColumns = `id, full_name, email, phone, password_hash, is_active, is_deleted, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var active, deleted bool
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash, &active, &deleted, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.State = domain.StateFromFlags(active, deleted)
	return &u, nil
}

func (q *queries) CreateUser(ctx context.Context, u *domain.User) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateUser")
	defer span.End()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	active, deleted := u.State.Flags()
	err := q.db.QueryRow(ctx, `
		INSERT INTO users (id, full_name, email, phone, password_hash, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		u.ID, u.FullName, u.Email, u.Phone, u.PasswordHash, active, deleted,
	).Scan(&u.CreatedAt)
	return mapErr(err)
}

func (q *queries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetUser")
	defer span.End()

	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return must(u, err, "user", id)
}

func (q *queries) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.FindUserByPhone")
	defer span.End()

	return one(scanUser(q.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE phone = $1 AND NOT is_deleted
		ORDER BY created_at DESC LIMIT 1`, phone)))
}

func (q *queries) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.FindUserByEmail")
	defer span.End()

	return one(scanUser(q.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 AND NOT is_deleted
		ORDER BY created_at DESC LIMIT 1`, email)))
}

func (q *queries) SetUserState(ctx context.Context, id string, state domain.RecordState) error {
	ctx, span := tracer.Start(ctx, "Postgres.SetUserState")
	defer span.End()
	span.SetAttributes(attribute.String("user.state", state.String()))

	active, deleted := state.Flags()
	tag, err := q.db.Exec(ctx, `UPDATE users SET is_active = $2, is_deleted = $3 WHERE id = $1`, id, active, deleted)
	return affected(tag, err, "user", id)
}

func (q *queries) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateUserPassword")
	defer span.End()

	tag, err := q.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return affected(tag, err, "user", id)
}

// --- roles ---

func (q *queries) FindRoleByValue(ctx context.Context, value string) (*domain.Role, error) {
	ctx, span := tracer.Start(ctx, "Postgres.FindRoleByValue")
	defer span.End()

	var r domain.Role
	err := q.db.QueryRow(ctx, `SELECT id, value, label FROM roles WHERE value = $1`, value).
		Scan(&r.ID, &r.Value, &r.Label)
	return one(&r, err)
}

func (q *queries) UserHasRole(ctx context.Context, userID, roleID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UserHasRole")
	defer span.End()

	var ok bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`,
		userID, roleID).Scan(&ok)
	return ok, err
}

func (q *queries) RoleAssigned(ctx context.Context, roleID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.RoleAssigned")
	defer span.End()

	var ok bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_roles WHERE role_id = $1)`, roleID).Scan(&ok)
	return ok, err
}

func (q *queries) AssignRole(ctx context.Context, userID, roleID string) error {
	ctx, span := tracer.Start(ctx, "Postgres.AssignRole")
	defer span.End()

	_, err := q.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	return mapErr(err)
}

func (q *queries) RolePermissions(ctx context.Context, userID, roleValue string) (*domain.Grants, error) {
	ctx, span := tracer.Start(ctx, "Postgres.RolePermissions")
	defer span.End()

	grants := &domain.Grants{Roles: []string{}, Permissions: []string{}}
	err := q.db.QueryRow(ctx, `
		SELECT
			COALESCE(array_agg(DISTINCT r.value), '{}'),
			COALESCE(array_agg(DISTINCT p.value) FILTER (WHERE p.value IS NOT NULL), '{}')
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1 AND r.value = $2`, userID, roleValue,
	).Scan(&grants.Roles, &grants.Permissions)
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// --- otp challenges ---

func (q *queries) InvalidateChallenges(ctx context.Context, identifier string, t domain.OtpType, now time.Time) error {
	ctx, span := tracer.Start(ctx, "Postgres.InvalidateChallenges")
	defer span.End()

	_, err := q.db.Exec(ctx, `
		UPDATE otp_challenges
		SET is_used = true, expires_at = LEAST(expires_at, $3)
		WHERE identifier = $1 AND type = $2 AND NOT is_used`, identifier, int(t), now)
	return err
}

func (q *queries) CreateChallenge(ctx context.Context, c *domain.OtpChallenge) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateChallenge")
	defer span.End()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return q.db.QueryRow(ctx, `
		INSERT INTO otp_challenges (id, otp, type, identifier, attempts, is_used, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		c.ID, c.Code, int(c.Type), c.Identifier, c.Attempts, c.IsUsed, c.ExpiresAt,
	).Scan(&c.CreatedAt)
}

func (q *queries) LatestUnusedChallenge(ctx context.Context, identifier string, t domain.OtpType) (*domain.OtpChallenge, error) {
	ctx, span := tracer.Start(ctx, "Postgres.LatestUnusedChallenge")
	defer span.End()

	var c domain.OtpChallenge
	var typ int
	err := q.db.QueryRow(ctx, `
		SELECT id, otp, type, identifier, attempts, is_used, expires_at, created_at
		FROM otp_challenges
		WHERE identifier = $1 AND type = $2 AND NOT is_used
		ORDER BY created_at DESC LIMIT 1`, identifier, int(t),
	).Scan(&c.ID, &c.Code, &typ, &c.Identifier, &c.Attempts, &c.IsUsed, &c.ExpiresAt, &c.CreatedAt)
	c.Type = domain.OtpType(typ)
	return one(&c, err)
}

func (q *queries) CountLiveChallenges(ctx context.Context, identifier string, t domain.OtpType, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CountLiveChallenges")
	defer span.End()

	var n int
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM otp_challenges
		WHERE identifier = $1 AND type = $2 AND NOT is_used AND expires_at > $3`,
		identifier, int(t), now).Scan(&n)
	return n, err
}

func (q *queries) MarkChallengeUsed(ctx context.Context, id string, now time.Time) error {
	ctx, span := tracer.Start(ctx, "Postgres.MarkChallengeUsed")
	defer span.End()

	tag, err := q.db.Exec(ctx,
		`UPDATE otp_challenges SET is_used = true, expires_at = LEAST(expires_at, $2) WHERE id = $1`, id, now)
	return affected(tag, err, "otp", id)
}

func (q *queries) ClaimChallengeAttempt(ctx context.Context, id string, maxAttempts int) (int, bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ClaimChallengeAttempt")
	defer span.End()

	var n int
	err := q.db.QueryRow(ctx, `
		UPDATE otp_challenges SET attempts = attempts + 1
		WHERE id = $1 AND NOT is_used AND attempts < $2
		RETURNING attempts`, id, maxAttempts).Scan(&n)
	claimed, err := one(&n, err)
	if err != nil || claimed == nil {
		return 0, false, err
	}
	return n, true, nil
}

func (q *queries) ConsumeChallenge(ctx context.Context, id string, now time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ConsumeChallenge")
	defer span.End()

	tag, err := q.db.Exec(ctx, `
		UPDATE otp_challenges SET is_used = true, expires_at = LEAST(expires_at, $2)
		WHERE id = $1 AND NOT is_used`, id, now)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// --- registration sessions ---

func (q *queries) CreateSession(ctx context.Context, s *domain.RegistrationSession) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateSession")
	defer span.End()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	active, deleted := s.State.Flags()
	return q.db.QueryRow(ctx, `
		INSERT INTO registration_sessions
			(id, phone_number, email, phone_verified, email_verified, role_value, is_active, is_deleted, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		s.ID, s.PhoneNumber, s.Email, s.PhoneVerified, s.EmailVerified, s.RoleValue, active, deleted, s.ExpiresAt,
	).Scan(&s.CreatedAt)
}

func (q *queries) GetSession(ctx context.Context, id string) (*domain.RegistrationSession, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetSession")
	defer span.End()

	var s domain.RegistrationSession
	var active, deleted bool
	err := q.db.QueryRow(ctx, `
		SELECT id, phone_number, email, phone_verified, email_verified, role_value,
			is_active, is_deleted, expires_at, created_at
		FROM registration_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.PhoneNumber, &s.Email, &s.PhoneVerified, &s.EmailVerified, &s.RoleValue,
		&active, &deleted, &s.ExpiresAt, &s.CreatedAt)
	s.State = domain.StateFromFlags(active, deleted)
	return must(&s, err, "session", id)
}

func (q *queries) MarkPhoneVerified(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Postgres.MarkPhoneVerified")
	defer span.End()

	tag, err := q.db.Exec(ctx, `UPDATE registration_sessions SET phone_verified = true WHERE id = $1`, id)
	return affected(tag, err, "session", id)
}

func (q *queries) AttachSessionEmail(ctx context.Context, id, email string) error {
	ctx, span := tracer.Start(ctx, "Postgres.AttachSessionEmail")
	defer span.End()

	tag, err := q.db.Exec(ctx,
		`UPDATE registration_sessions SET email = $2, email_verified = false WHERE id = $1`, id, email)
	return affected(tag, err, "session", id)
}

func (q *queries) MarkEmailVerified(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Postgres.MarkEmailVerified")
	defer span.End()

	tag, err := q.db.Exec(ctx, `UPDATE registration_sessions SET email_verified = true WHERE id = $1`, id)
	return affected(tag, err, "session", id)
}

func (q *queries) ConsumeSession(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Postgres.ConsumeSession")
	defer span.End()

	tag, err := q.db.Exec(ctx,
		`UPDATE registration_sessions SET is_active = false, is_deleted = true WHERE id = $1`, id)
	return affected(tag, err, "session", id)
}
