package memory

import (
	"context"
	"slices"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
)

// --- company profiles ---

func (r *repo) CreateCompanyProfile(_ context.Context, p *domain.CompanyProfile) error {
	st, unlock := r.lock()
	defer unlock()

	live := func(x domain.CompanyProfile) bool { return !x.State.IsDeleted() }
	if st.companies.any(func(x domain.CompanyProfile) bool { return live(x) && x.CIN == p.CIN }) {
		return &domain.ErrDuplicate{Key: "company_profiles_cin_key"}
	}
	if st.companies.any(func(x domain.CompanyProfile) bool { return live(x) && x.GSTIN == p.GSTIN }) {
		return &domain.ErrDuplicate{Key: "company_profiles_gstin_key"}
	}
	p.ID = newID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	st.companies.put(p.ID, *p)
	return nil
}

func (r *repo) GetCompanyProfile(_ context.Context, id string) (*domain.CompanyProfile, error) {
	st, unlock := r.lock()
	defer unlock()

	p, ok := st.companies.get(id)
	if !ok {
		return nil, notFound("company profile", id)
	}
	return &p, nil
}

func (r *repo) FindActiveCompanyByUser(_ context.Context, userID string) (*domain.CompanyProfile, error) {
	st, unlock := r.lock()
	defer unlock()

	p, ok := st.companies.latest(func(x domain.CompanyProfile) bool {
		return x.UsersID == userID && x.State.IsActive()
	})
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) CompanyExistsByCIN(_ context.Context, cin string) (bool, error) {
	st, unlock := r.lock()
	defer unlock()

	return st.companies.any(func(x domain.CompanyProfile) bool {
		return x.CIN == cin && !x.State.IsDeleted()
	}), nil
}

func (r *repo) CompanyExistsByGSTIN(_ context.Context, gstin string) (bool, error) {
	st, unlock := r.lock()
	defer unlock()

	return st.companies.any(func(x domain.CompanyProfile) bool {
		return x.GSTIN == gstin && !x.State.IsDeleted()
	}), nil
}

func (r *repo) SetCompanyState(_ context.Context, id string, state domain.RecordState) error {
	st, unlock := r.lock()
	defer unlock()

	p, ok := st.companies.get(id)
	if !ok {
		return notFound("company profile", id)
	}
	p.State = state
	st.companies.put(id, p)
	return nil
}

// --- PAN records ---

func approvedPan(st *state, panNumber string) bool {
	return st.pans.any(func(x domain.PanRecord) bool {
		return x.SubmittedPanNumber == panNumber && x.Status == domain.KycApproved && !x.State.IsDeleted()
	})
}

func (r *repo) CreatePanRecord(_ context.Context, rec *domain.PanRecord) error {
	st, unlock := r.lock()
	defer unlock()

	if rec.Status == domain.KycApproved && !rec.State.IsDeleted() && approvedPan(st, rec.SubmittedPanNumber) {
		return &domain.ErrDuplicate{Key: "company_profile_pan_details_pan_key"}
	}
	rec.ID = newID(rec.ID)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	st.pans.put(rec.ID, *rec)
	return nil
}

func (r *repo) ApprovedPanExists(_ context.Context, panNumber string) (bool, error) {
	st, unlock := r.lock()
	defer unlock()

	return approvedPan(st, panNumber), nil
}

func (r *repo) LatestPanRecord(_ context.Context, companyProfileID string) (*domain.PanRecord, error) {
	st, unlock := r.lock()
	defer unlock()

	rec, ok := st.pans.latest(func(x domain.PanRecord) bool { return x.CompanyProfilesID == companyProfileID })
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) SetPanRecordStatus(_ context.Context, id string, status domain.KycStatus) error {
	st, unlock := r.lock()
	defer unlock()

	rec, ok := st.pans.get(id)
	if !ok {
		return notFound("pan record", id)
	}
	if status == domain.KycApproved && rec.Status != domain.KycApproved && approvedPan(st, rec.SubmittedPanNumber) {
		return &domain.ErrDuplicate{Key: "company_profile_pan_details_pan_key"}
	}
	rec.Status = status
	st.pans.put(id, rec)
	return nil
}

// --- trustee uploads ---

func (r *repo) FindTrusteeByUser(_ context.Context, userID string) (*domain.TrusteeProfile, error) {
	st, unlock := r.lock()
	defer unlock()

	t, ok := st.trustees.latest(func(x domain.TrusteeProfile) bool {
		return x.UsersID == userID && !x.State.IsDeleted()
	})
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) ActiveDocumentTypeExists(_ context.Context, id string) (bool, error) {
	st, unlock := r.lock()
	defer unlock()

	d, ok := st.docTypes.get(id)
	return ok && d.State.IsActive(), nil
}

func (r *repo) CreateUploadedDocuments(_ context.Context, docs []*domain.UserUploadedDocument) error {
	st, unlock := r.lock()
	defer unlock()

	now := r.now()
	for _, d := range docs {
		d.ID = newID(d.ID)
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		st.documents.put(d.ID, *d)
	}
	return nil
}

func (r *repo) CreateBankDetails(_ context.Context, b *domain.BankDetails) error {
	st, unlock := r.lock()
	defer unlock()

	b.ID = newID(b.ID)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}
	st.banks.put(b.ID, *b)
	return nil
}

func (r *repo) CreateSignatory(_ context.Context, s *domain.AuthorizeSignatory) error {
	st, unlock := r.lock()
	defer unlock()

	dup := st.signatories.any(func(x domain.AuthorizeSignatory) bool {
		return x.State.IsActive() &&
			x.SubmittedPanNumber == s.SubmittedPanNumber &&
			x.UsersID == s.UsersID &&
			x.RoleValue == s.RoleValue &&
			x.IdentifierID == s.IdentifierID
	})
	if dup && s.State.IsActive() {
		return &domain.ErrDuplicate{Key: "authorize_signatories_pan_key"}
	}
	s.ID = newID(s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	st.signatories.put(s.ID, *s)
	return nil
}

// --- KYC applications ---

func (r *repo) CreateKycApplication(_ context.Context, k *domain.KycApplication) error {
	st, unlock := r.lock()
	defer unlock()

	k.ID = newID(k.ID)
	if k.CreatedAt.IsZero() {
		k.CreatedAt = r.now()
	}
	if k.CurrentProgress == nil {
		k.CurrentProgress = []string{}
	}
	k.CurrentProgress = slices.Clone(k.CurrentProgress)
	st.kycs.put(k.ID, *k)
	return nil
}

func (r *repo) GetKycApplication(_ context.Context, id string) (*domain.KycApplication, error) {
	st, unlock := r.lock()
	defer unlock()

	k, ok := st.kycs.get(id)
	if !ok {
		return nil, notFound("kyc application", id)
	}
	k.CurrentProgress = slices.Clone(k.CurrentProgress)
	return &k, nil
}

func (r *repo) LatestActiveKyc(_ context.Context, userID, roleValue string) (*domain.KycApplication, error) {
	st, unlock := r.lock()
	defer unlock()

	k, ok := st.kycs.latest(func(x domain.KycApplication) bool {
		return x.UsersID == userID && x.RoleValue == roleValue && x.State.IsActive()
	})
	if !ok {
		return nil, nil
	}
	k.CurrentProgress = slices.Clone(k.CurrentProgress)
	return &k, nil
}

func (r *repo) SetKycStatus(_ context.Context, id string, status domain.KycStatus) error {
	st, unlock := r.lock()
	defer unlock()

	k, ok := st.kycs.get(id)
	if !ok {
		return notFound("kyc application", id)
	}
	k.Status = status
	st.kycs.put(id, k)
	return nil
}

func (r *repo) AppendKycProgress(_ context.Context, id, tag string) ([]string, error) {
	st, unlock := r.lock()
	defer unlock()

	k, ok := st.kycs.get(id)
	if !ok {
		return nil, notFound("kyc application", id)
	}
	k.CurrentProgress = domain.AppendStep(k.CurrentProgress, tag)
	st.kycs.put(id, k)
	return slices.Clone(k.CurrentProgress), nil
}
