package postgres

import (
	"context"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

// --- company profiles ---

const companyColumns = `id, users_id, company_name, cin, gstin, udyam_registration_number,
	date_of_incorporation, city_of_incorporation, state_of_incorporation, country_of_incorporation,
	company_entity_type_id, company_sector_type_id, is_active, is_deleted, created_at`

func scanCompany(row pgx.Row) (*domain.CompanyProfile, error) {
	var p domain.CompanyProfile
	var active, deleted bool
	err := row.Scan(&p.ID, &p.UsersID, &p.CompanyName, &p.CIN, &p.GSTIN, &p.UdyamRegistrationNumber,
		&p.DateOfIncorporation, &p.CityOfIncorporation, &p.StateOfIncorporation, &p.CountryOfIncorporation,
		&p.CompanyEntityTypeID, &p.CompanySectorTypeID, &active, &deleted, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.State = domain.StateFromFlags(active, deleted)
	return &p, nil
}

func (q *queries) CreateCompanyProfile(ctx context.Context, p *domain.CompanyProfile) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateCompanyProfile")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	active, deleted := p.State.Flags()
	err := q.db.QueryRow(ctx, `
		INSERT INTO company_profiles (id, users_id, company_name, cin, gstin, udyam_registration_number,
			date_of_incorporation, city_of_incorporation, state_of_incorporation, country_of_incorporation,
			company_entity_type_id, company_sector_type_id, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`,
		p.ID, p.UsersID, p.CompanyName, p.CIN, p.GSTIN, p.UdyamRegistrationNumber,
		p.DateOfIncorporation, p.CityOfIncorporation, p.StateOfIncorporation, p.CountryOfIncorporation,
		p.CompanyEntityTypeID, p.CompanySectorTypeID, active, deleted,
	).Scan(&p.CreatedAt)
	return mapErr(err)
}

func (q *queries) GetCompanyProfile(ctx context.Context, id string) (*domain.CompanyProfile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCompanyProfile")
	defer span.End()

	p, err := scanCompany(q.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM company_profiles WHERE id = $1`, id))
	return must(p, err, "company profile", id)
}

func (q *queries) FindActiveCompanyByUser(ctx context.Context, userID string) (*domain.CompanyProfile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.FindActiveCompanyByUser")
	defer span.End()

	return one(scanCompany(q.db.QueryRow(ctx, `
		SELECT `+companyColumns+` FROM company_profiles
		WHERE users_id = $1 AND is_active AND NOT is_deleted
		ORDER BY created_at DESC LIMIT 1`, userID)))
}

func (q *queries) CompanyExistsByCIN(ctx context.Context, cin string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CompanyExistsByCIN")
	defer span.End()

	var ok bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM company_profiles WHERE cin = $1 AND NOT is_deleted)`, cin).Scan(&ok)
	return ok, err
}

func (q *queries) CompanyExistsByGSTIN(ctx context.Context, gstin string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CompanyExistsByGSTIN")
	defer span.End()

	var ok bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM company_profiles WHERE gstin = $1 AND NOT is_deleted)`, gstin).Scan(&ok)
	return ok, err
}

func (q *queries) SetCompanyState(ctx context.Context, id string, state domain.RecordState) error {
	ctx, span := tracer.Start(ctx, "Postgres.SetCompanyState")
	defer span.End()
	span.SetAttributes(attribute.String("company.state", state.String()))

	active, deleted := state.Flags()
	tag, err := q.db.Exec(ctx,
		`UPDATE company_profiles SET is_active = $2, is_deleted = $3 WHERE id = $1`, id, active, deleted)
	return affected(tag, err, "company profile", id)
}

// --- PAN records ---

func (q *queries) CreatePanRecord(ctx context.Context, r *domain.PanRecord) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreatePanRecord")
	defer span.End()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	active, deleted := r.State.Flags()
	err := q.db.QueryRow(ctx, `
		INSERT INTO company_profile_pan_details (id, company_profiles_id, submitted_company_name,
			submitted_pan_number, submitted_date_of_birth, extracted_company_name, extracted_pan_number,
			extracted_date_of_birth, pan_card_document_id, mode, status, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`,
		r.ID, r.CompanyProfilesID, r.SubmittedCompanyName, r.SubmittedPanNumber, r.SubmittedDOB,
		r.ExtractedCompanyName, r.ExtractedPanNumber, r.ExtractedDOB, r.PanCardDocumentID,
		int(r.Mode), int(r.Status), active, deleted,
	).Scan(&r.CreatedAt)
	return mapErr(err)
}

func (q *queries) ApprovedPanExists(ctx context.Context, panNumber string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ApprovedPanExists")
	defer span.End()

	var ok bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM company_profile_pan_details
			WHERE submitted_pan_number = $1 AND status = 1 AND NOT is_deleted
		)`, panNumber).Scan(&ok)
	return ok, err
}

func (q *queries) LatestPanRecord(ctx context.Context, companyProfileID string) (*domain.PanRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.LatestPanRecord")
	defer span.End()

	var r domain.PanRecord
	var mode, status int
	var active, deleted bool
	err := q.db.QueryRow(ctx, `
		SELECT id, company_profiles_id, submitted_company_name, submitted_pan_number, submitted_date_of_birth,
			extracted_company_name, extracted_pan_number, extracted_date_of_birth, pan_card_document_id,
			mode, status, is_active, is_deleted, created_at
		FROM company_profile_pan_details
		WHERE company_profiles_id = $1
		ORDER BY created_at DESC LIMIT 1`, companyProfileID,
	).Scan(&r.ID, &r.CompanyProfilesID, &r.SubmittedCompanyName, &r.SubmittedPanNumber, &r.SubmittedDOB,
		&r.ExtractedCompanyName, &r.ExtractedPanNumber, &r.ExtractedDOB, &r.PanCardDocumentID,
		&mode, &status, &active, &deleted, &r.CreatedAt)
	r.Mode = domain.VerificationMode(mode)
	r.Status = domain.KycStatus(status)
	r.State = domain.StateFromFlags(active, deleted)
	return one(&r, err)
}

func (q *queries) SetPanRecordStatus(ctx context.Context, id string, status domain.KycStatus) error {
	ctx, span := tracer.Start(ctx, "Postgres.SetPanRecordStatus")
	defer span.End()

	tag, err := q.db.Exec(ctx, `UPDATE company_profile_pan_details SET status = $2 WHERE id = $1`, id, int(status))
	return affected(tag, err, "pan record", id)
}

// --- trustee uploads ---

func (q *queries) FindTrusteeByUser(ctx context.Context, userID string) (*domain.TrusteeProfile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.FindTrusteeByUser")
	defer span.End()

	var t domain.TrusteeProfile
	var kycID *string
	var active, deleted bool
	err := q.db.QueryRow(ctx, `
		SELECT id, users_id, kyc_applications_id, is_active, is_deleted
		FROM trustee_profiles
		WHERE users_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC LIMIT 1`, userID,
	).Scan(&t.ID, &t.UsersID, &kycID, &active, &deleted)
	if kycID != nil {
		t.KycApplicationsID = *kycID
	}
	t.State = domain.StateFromFlags(active, deleted)
	return one(&t, err)
}

func (q *queries) ActiveDocumentTypeExists(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ActiveDocumentTypeExists")
	defer span.End()

	var ok bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM document_types WHERE id = $1 AND is_active AND NOT is_deleted)`, id).Scan(&ok)
	if malformedID(err) {
		return false, nil
	}
	return ok, err
}

func (q *queries) CreateUploadedDocuments(ctx context.Context, docs []*domain.UserUploadedDocument) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateUploadedDocuments")
	defer span.End()
	span.SetAttributes(attribute.Int("documents.count", len(docs)))

	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		active, deleted := d.State.Flags()
		err := q.db.QueryRow(ctx, `
			INSERT INTO user_uploaded_documents (id, users_id, identifier_id, role_value, documents_id,
				documents_file_id, mode, status, verified_at, is_active, is_deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at`,
			d.ID, d.UsersID, d.IdentifierID, d.RoleValue, d.DocumentsID, d.DocumentsFileID,
			int(d.Mode), int(d.Status), d.VerifiedAt, active, deleted,
		).Scan(&d.CreatedAt)
		if err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (q *queries) CreateBankDetails(ctx context.Context, b *domain.BankDetails) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateBankDetails")
	defer span.End()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	active, deleted := b.State.Flags()
	err := q.db.QueryRow(ctx, `
		INSERT INTO bank_details (id, users_id, role_value, bank_name, bank_short_code, ifsc_code,
			branch_name, bank_address, account_type, account_holder_name, account_number,
			bank_account_proof_type, bank_account_proof_id, mode, status, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at`,
		b.ID, b.UsersID, b.RoleValue, b.BankName, b.BankShortCode, b.IfscCode,
		b.BranchName, b.BankAddress, b.AccountType, b.AccountHolderName, b.AccountNumber,
		b.BankAccountProofType, b.BankAccountProofID, int(b.Mode), int(b.Status), active, deleted,
	).Scan(&b.CreatedAt)
	return mapErr(err)
}

func (q *queries) CreateSignatory(ctx context.Context, s *domain.AuthorizeSignatory) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateSignatory")
	defer span.End()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	active, deleted := s.State.Flags()
	err := q.db.QueryRow(ctx, `
		INSERT INTO authorize_signatories (id, users_id, identifier_id, role_value, full_name, email, phone,
			extracted_pan_full_name, extracted_pan_number, extracted_date_of_birth,
			submitted_pan_full_name, submitted_pan_number, submitted_date_of_birth,
			pan_card_file_id, board_resolution_file_id, designation_type, designation_value,
			mode, status, verified_at, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22)
		RETURNING created_at`,
		s.ID, s.UsersID, s.IdentifierID, s.RoleValue, s.FullName, s.Email, s.Phone,
		s.ExtractedPanFullName, s.ExtractedPanNumber, s.ExtractedDateOfBirth,
		s.SubmittedPanFullName, s.SubmittedPanNumber, s.SubmittedDateOfBirth,
		s.PanCardFileID, s.BoardResolutionFileID, s.DesignationType, s.DesignationValue,
		int(s.Mode), int(s.Status), s.VerifiedAt, active, deleted,
	).Scan(&s.CreatedAt)
	return mapErr(err)
}

// --- KYC applications ---

const kycColumns = `id, role_value, users_id, identifier_id, status, mode, human_interaction,
	current_progress, is_active, is_deleted, created_at`

func scanKyc(row pgx.Row) (*domain.KycApplication, error) {
	var k domain.KycApplication
	var status, mode int
	var active, deleted bool
	err := row.Scan(&k.ID, &k.RoleValue, &k.UsersID, &k.IdentifierID, &status, &mode, &k.HumanInteraction,
		&k.CurrentProgress, &active, &deleted, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	k.Status = domain.KycStatus(status)
	k.Mode = domain.VerificationMode(mode)
	k.State = domain.StateFromFlags(active, deleted)
	if k.CurrentProgress == nil {
		k.CurrentProgress = []string{}
	}
	return &k, nil
}

func (q *queries) CreateKycApplication(ctx context.Context, k *domain.KycApplication) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateKycApplication")
	defer span.End()

	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	if k.CurrentProgress == nil {
		k.CurrentProgress = []string{}
	}
	active, deleted := k.State.Flags()
	err := q.db.QueryRow(ctx, `
		INSERT INTO kyc_applications (id, role_value, users_id, identifier_id, status, mode,
			human_interaction, current_progress, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		k.ID, k.RoleValue, k.UsersID, k.IdentifierID, int(k.Status), int(k.Mode),
		k.HumanInteraction, k.CurrentProgress, active, deleted,
	).Scan(&k.CreatedAt)
	return mapErr(err)
}

func (q *queries) GetKycApplication(ctx context.Context, id string) (*domain.KycApplication, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetKycApplication")
	defer span.End()

	k, err := scanKyc(q.db.QueryRow(ctx, `SELECT `+kycColumns+` FROM kyc_applications WHERE id = $1`, id))
	return must(k, err, "kyc application", id)
}

func (q *queries) LatestActiveKyc(ctx context.Context, userID, roleValue string) (*domain.KycApplication, error) {
	ctx, span := tracer.Start(ctx, "Postgres.LatestActiveKyc")
	defer span.End()

	return one(scanKyc(q.db.QueryRow(ctx, `
		SELECT `+kycColumns+` FROM kyc_applications
		WHERE users_id = $1 AND role_value = $2 AND is_active AND NOT is_deleted
		ORDER BY created_at DESC LIMIT 1`, userID, roleValue)))
}

func (q *queries) SetKycStatus(ctx context.Context, id string, status domain.KycStatus) error {
	ctx, span := tracer.Start(ctx, "Postgres.SetKycStatus")
	defer span.End()

	tag, err := q.db.Exec(ctx, `UPDATE kyc_applications SET status = $2 WHERE id = $1`, id, int(status))
	return affected(tag, err, "kyc application", id)
}

// AppendKycProgress appends tag in a single statement, so concurrent callers
// never lose each other's steps.
func (q *queries) AppendKycProgress(ctx context.Context, id, tag string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Postgres.AppendKycProgress")
	defer span.End()
	span.SetAttributes(attribute.String("kyc.step", tag))

	var progress []string
	err := q.db.QueryRow(ctx, `
		UPDATE kyc_applications
		SET current_progress = CASE
			WHEN current_progress ? $2 THEN current_progress
			ELSE current_progress || jsonb_build_array($2::text)
		END
		WHERE id = $1
		RETURNING current_progress`, id, tag,
	).Scan(&progress)
	if _, err := must(&progress, err, "kyc application", id); err != nil {
		return nil, err
	}
	return progress, nil
}
