//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/postgres"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"
)

func setupStore(t *testing.T) (*pgxpool.Pool, *postgres.Store) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("kyc"),
		tcpostgres.WithUsername("kyc"),
		tcpostgres.WithPassword("kyc"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	// Applying twice must be harmless.
	require.NoError(t, postgres.Migrate(ctx, pool))

	return pool, postgres.NewStore(pool)
}

func TestStore_Integration(t *testing.T) {
	pool, store := setupStore(t)
	ctx := context.Background()

	user := &domain.User{Phone: "9000000001", Email: "a@example.com", State: domain.StateInactive}
	require.NoError(t, store.CreateUser(ctx, user))

	t.Run("duplicate phone maps to ErrDuplicate", func(t *testing.T) {
		err := store.CreateUser(ctx, &domain.User{Phone: "9000000001", State: domain.StateInactive})
		var dup *domain.ErrDuplicate
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "users_phone_key", dup.Key)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		_, err := store.GetUser(ctx, "not-a-uuid")
		var nf *domain.ErrNotFound
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		uow, err := store.Begin(ctx, port.ReadCommitted)
		require.NoError(t, err)
		require.NoError(t, uow.CreateUser(ctx, &domain.User{Phone: "9000000002", State: domain.StateInactive}))
		require.NoError(t, uow.Rollback(ctx))

		got, err := store.FindUserByPhone(ctx, "9000000002")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("roles seeded and permissions resolved", func(t *testing.T) {
		role, err := store.FindRoleByValue(ctx, domain.RoleCompany)
		require.NoError(t, err)
		require.NotNil(t, role)

		require.NoError(t, store.AssignRole(ctx, user.ID, role.ID))
		has, err := store.UserHasRole(ctx, user.ID, role.ID)
		require.NoError(t, err)
		assert.True(t, has)

		grants, err := store.RolePermissions(ctx, user.ID, domain.RoleCompany)
		require.NoError(t, err)
		assert.Equal(t, []string{domain.RoleCompany}, grants.Roles)
		assert.Contains(t, grants.Permissions, "estimation.write")
	})

	t.Run("otp invalidate keeps one live challenge", func(t *testing.T) {
		now := time.Now()
		for i := 0; i < 3; i++ {
			uow, err := store.Begin(ctx, port.ReadCommitted)
			require.NoError(t, err)
			require.NoError(t, uow.InvalidateChallenges(ctx, "9000000001", domain.OtpPhone, now))
			require.NoError(t, uow.CreateChallenge(ctx, &domain.OtpChallenge{
				Code: "1234", Type: domain.OtpPhone, Identifier: "9000000001", ExpiresAt: now.Add(5 * time.Minute),
			}))
			require.NoError(t, uow.Commit(ctx))
		}
		n, err := store.CountLiveChallenges(ctx, "9000000001", domain.OtpPhone, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		c, err := store.LatestUnusedChallenge(ctx, "9000000001", domain.OtpPhone)
		require.NoError(t, err)
		require.NotNil(t, c)
		for want := 1; want <= 3; want++ {
			attempts, ok, err := store.ClaimChallengeAttempt(ctx, c.ID, 3)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, attempts)
		}
		_, ok, err := store.ClaimChallengeAttempt(ctx, c.ID, 3)
		require.NoError(t, err)
		assert.False(t, ok, "attempt past the ceiling")

		consumed, err := store.ConsumeChallenge(ctx, c.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, consumed)
		consumed, err = store.ConsumeChallenge(ctx, c.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, consumed, "second consume")
	})

	t.Run("progress append is idempotent", func(t *testing.T) {
		kyc := &domain.KycApplication{
			RoleValue: domain.RoleCompany, UsersID: user.ID, Mode: domain.ModeManual,
			CurrentProgress: []string{domain.StepCompanyKyc}, State: domain.StateActive,
		}
		require.NoError(t, store.CreateKycApplication(ctx, kyc))

		p, err := store.AppendKycProgress(ctx, kyc.ID, domain.StepPanVerified)
		require.NoError(t, err)
		assert.Equal(t, []string{domain.StepCompanyKyc, domain.StepPanVerified}, p)

		p, err = store.AppendKycProgress(ctx, kyc.ID, domain.StepPanVerified)
		require.NoError(t, err)
		assert.Equal(t, []string{domain.StepCompanyKyc, domain.StepPanVerified}, p)
	})

	t.Run("savepoint undoes only the failed scope", func(t *testing.T) {
		uow, err := store.Begin(ctx, port.ReadCommitted)
		require.NoError(t, err)
		defer func() { _ = uow.Rollback(ctx) }()

		boom := errors.New("boom")
		err = uow.Savepoint(ctx, func(r port.Repositories) error {
			if err := r.CreateUser(ctx, &domain.User{Phone: "9000000003", State: domain.StateInactive}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, uow.Savepoint(ctx, func(r port.Repositories) error {
			return r.CreateUser(ctx, &domain.User{Phone: "9000000004", State: domain.StateInactive})
		}))
		require.NoError(t, uow.Commit(ctx))

		gone, err := store.FindUserByPhone(ctx, "9000000003")
		require.NoError(t, err)
		assert.Nil(t, gone)
		kept, err := store.FindUserByPhone(ctx, "9000000004")
		require.NoError(t, err)
		assert.NotNil(t, kept)
	})

	t.Run("estimation sections and child rows", func(t *testing.T) {
		company := &domain.CompanyProfile{
			UsersID: user.ID, CompanyName: "Acme", CIN: "U12345MH2020PTC123456", GSTIN: "27AAAAA0000A1Z5",
			State: domain.StateActive,
		}
		require.NoError(t, store.CreateCompanyProfile(ctx, company))

		est := &domain.BondEstimation{
			CompanyProfilesID: company.ID, CurrentProgress: []string{domain.StepInitialize}, State: domain.StateActive,
		}
		require.NoError(t, store.CreateEstimation(ctx, est))

		require.NoError(t, store.SaveCapitalDetails(ctx, est.ID, &domain.CapitalDetails{
			ShareCapital: decimal.NewFromInt(100), ReserveSurplus: decimal.NewFromInt(20), NetWorth: decimal.NewFromInt(120),
		}))
		require.NoError(t, store.ReplaceBorrowingDetails(ctx, est.ID, []domain.BorrowingDetail{
			{LenderName: "Bank", LenderAmount: decimal.RequireFromString("1500.50"), BorrowingType: "term"},
		}))
		require.NoError(t, store.ReplaceBorrowingDetails(ctx, est.ID, []domain.BorrowingDetail{
			{LenderName: "Other", LenderAmount: decimal.NewFromInt(10), BorrowingType: "cc"},
		}))

		got, err := store.GetEstimation(ctx, est.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CapitalDetails)
		assert.True(t, got.CapitalDetails.NetWorth.Equal(decimal.NewFromInt(120)))
		assert.Nil(t, got.FundPosition)

		rows, err := store.ListBorrowingDetails(ctx, est.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Other", rows[0].LenderName)

		page, total, err := store.ListEstimations(ctx, company.ID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, page, 1)
	})

	t.Run("media ledger flips flags", func(t *testing.T) {
		_, err := pool.Exec(ctx, `INSERT INTO media (id, file_url) VALUES ('m1', 'https://files/m1'), ('m2', 'https://files/m2')`)
		require.NoError(t, err)

		media := postgres.NewMediaLedger(pool)
		require.NoError(t, media.SetUsed(ctx, nil, true))
		require.NoError(t, media.SetUsed(ctx, []string{"m1", "m2", "unknown"}, true))
		require.NoError(t, media.SetUsed(ctx, []string{"m2"}, false))

		used, err := media.IsUsed(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, used)
		used, err = media.IsUsed(ctx, "m2")
		require.NoError(t, err)
		assert.False(t, used)
	})
}
