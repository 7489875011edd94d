// Package memory provides an in-process implementation of the persistence
// ports. Transactions take the store lock for their whole lifetime and work
// on a copy of the state, so a rollback simply drops the copy.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"github.com/google/uuid"
)

var errTxClosed = errors.New("memory: transaction already closed")

// table keeps rows by id and remembers insertion order, which stands in for
// created_at ordering.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T)}
}

func (t table[T]) clone() table[T] {
	rows := make(map[string]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return table[T]{rows: rows, order: slices.Clone(t.order)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

// latest returns the most recently inserted row matching fn.
func (t *table[T]) latest(fn func(T) bool) (T, bool) {
	for i := len(t.order) - 1; i >= 0; i-- {
		if v := t.rows[t.order[i]]; fn(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// filter returns matching rows in insertion order.
func (t *table[T]) filter(fn func(T) bool) []T {
	var out []T
	for _, id := range t.order {
		if v := t.rows[id]; fn(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *table[T]) any(fn func(T) bool) bool {
	_, ok := t.latest(fn)
	return ok
}

type userRole struct {
	UserID string
	RoleID string
}

type state struct {
	users       table[domain.User]
	roles       table[domain.Role]
	userRoles   table[userRole]
	otps        table[domain.OtpChallenge]
	sessions    table[domain.RegistrationSession]
	companies   table[domain.CompanyProfile]
	pans        table[domain.PanRecord]
	trustees    table[domain.TrusteeProfile]
	docTypes    table[domain.DocumentType]
	documents   table[domain.UserUploadedDocument]
	banks       table[domain.BankDetails]
	signatories table[domain.AuthorizeSignatory]
	kycs        table[domain.KycApplication]
	estimations table[domain.BondEstimation]
	ratings     map[string][]domain.CreditRating
	borrowings  map[string][]domain.BorrowingDetail

	// permissions per role value; reference data, never written by a tx.
	permissions map[string][]string
}

func newState() *state {
	return &state{
		users:       newTable[domain.User](),
		roles:       newTable[domain.Role](),
		userRoles:   newTable[userRole](),
		otps:        newTable[domain.OtpChallenge](),
		sessions:    newTable[domain.RegistrationSession](),
		companies:   newTable[domain.CompanyProfile](),
		pans:        newTable[domain.PanRecord](),
		trustees:    newTable[domain.TrusteeProfile](),
		docTypes:    newTable[domain.DocumentType](),
		documents:   newTable[domain.UserUploadedDocument](),
		banks:       newTable[domain.BankDetails](),
		signatories: newTable[domain.AuthorizeSignatory](),
		kycs:        newTable[domain.KycApplication](),
		estimations: newTable[domain.BondEstimation](),
		ratings:     make(map[string][]domain.CreditRating),
		borrowings:  make(map[string][]domain.BorrowingDetail),
		permissions: make(map[string][]string),
	}
}

func (s *state) clone() *state {
	ratings := make(map[string][]domain.CreditRating, len(s.ratings))
	for k, v := range s.ratings {
		ratings[k] = slices.Clone(v)
	}
	borrowings := make(map[string][]domain.BorrowingDetail, len(s.borrowings))
	for k, v := range s.borrowings {
		borrowings[k] = slices.Clone(v)
	}
	return &state{
		users:       s.users.clone(),
		roles:       s.roles.clone(),
		userRoles:   s.userRoles.clone(),
		otps:        s.otps.clone(),
		sessions:    s.sessions.clone(),
		companies:   s.companies.clone(),
		pans:        s.pans.clone(),
		trustees:    s.trustees.clone(),
		docTypes:    s.docTypes.clone(),
		documents:   s.documents.clone(),
		banks:       s.banks.clone(),
		signatories: s.signatories.clone(),
		kycs:        s.kycs.clone(),
		estimations: s.estimations.clone(),
		ratings:     ratings,
		borrowings:  borrowings,
		permissions: s.permissions,
	}
}

// Store is the in-memory port.Store.
type Store struct {
	repo

	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ port.Store = (*Store)(nil)

// New creates a store seeded with the platform roles.
func New() *Store {
	s := &Store{st: newState(), now: time.Now}
	s.repo = repo{s: s}
	s.seedRoles()
	return s
}

// Begin opens a unit of work. It blocks until any other open unit of work
// finishes.
func (s *Store) Begin(ctx context.Context, _ port.IsolationLevel) (port.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &unitOfWork{repo: repo{s: s, tx: s.st.clone()}}, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

type unitOfWork struct {
	repo
	done bool
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return errTxClosed
	}
	u.done = true
	defer u.s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.st = u.tx
	return nil
}

func (u *unitOfWork) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.s.mu.Unlock()
	return nil
}

func (u *unitOfWork) Savepoint(ctx context.Context, fn func(port.Repositories) error) error {
	if u.done {
		return errTxClosed
	}
	snapshot := u.tx.clone()
	if err := fn(&u.repo); err != nil {
		u.tx = snapshot
		return err
	}
	return nil
}

// repo implements port.Repositories either on the committed state (tx nil)
// or on a transaction copy.
type repo struct {
	s  *Store
	tx *state
}

func (r *repo) lock() (*state, func()) {
	if r.tx != nil {
		return r.tx, func() {}
	}
	r.s.mu.Lock()
	return r.s.st, r.s.mu.Unlock
}

func (r *repo) now() time.Time { return r.s.now() }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func notFound(resource, id string) error {
	return &domain.ErrNotFound{Resource: resource, ID: id}
}

func (s *Store) seedRoles() {
	seed := []struct {
		value, label string
		perms        []string
	}{
		{domain.RoleSuperAdmin, "Super Admin", []string{"kyc.review", "estimation.review", "users.manage"}},
		{domain.RoleCompany, "Company", []string{"estimation.write", "estimation.read", "signatory.write"}},
		{domain.RoleTrustee, "Trustee", []string{"trustee.kyc.write"}},
	}
	for _, r := range seed {
		id := uuid.NewString()
		s.st.roles.put(id, domain.Role{ID: id, Value: r.value, Label: r.label})
		s.st.permissions[r.value] = r.perms
	}
}

// Counts reports how many committed rows each onboarding table holds.
type Counts struct {
	Users       int
	UserRoles   int
	Companies   int
	PanRecords  int
	Kycs        int
	Signatories int
}

// Counts snapshots the committed row counts.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Users:       len(s.st.users.rows),
		UserRoles:   len(s.st.userRoles.rows),
		Companies:   len(s.st.companies.rows),
		PanRecords:  len(s.st.pans.rows),
		Kycs:        len(s.st.kycs.rows),
		Signatories: len(s.st.signatories.rows),
	}
}

// SeedTrustee creates an inactive trustee user with an open KYC application.
func (s *Store) SeedTrustee(ctx context.Context, email, phone string) (*domain.TrusteeProfile, error) {
	st, unlock := s.repo.lock()
	defer unlock()

	now := s.now()
	user := domain.User{ID: uuid.NewString(), Email: email, Phone: phone, State: domain.StateInactive, CreatedAt: now}
	st.users.put(user.ID, user)

	trustee := domain.TrusteeProfile{ID: uuid.NewString(), UsersID: user.ID, State: domain.StateActive}
	kyc := domain.KycApplication{
		ID:              uuid.NewString(),
		RoleValue:       domain.RoleTrustee,
		UsersID:         user.ID,
		IdentifierID:    trustee.ID,
		Status:          domain.KycPending,
		Mode:            domain.ModeManual,
		CurrentProgress: []string{},
		State:           domain.StateActive,
		CreatedAt:       now,
	}
	trustee.KycApplicationsID = kyc.ID
	st.kycs.put(kyc.ID, kyc)
	st.trustees.put(trustee.ID, trustee)
	return &trustee, nil
}

// SeedDocumentType adds an active document type and returns its id.
func (s *Store) SeedDocumentType(label string) string {
	st, unlock := s.repo.lock()
	defer unlock()

	id := uuid.NewString()
	st.docTypes.put(id, domain.DocumentType{ID: id, Label: label, State: domain.StateActive})
	return id
}
