package domain

// RecordState is the lifecycle of a persisted record. Storage keeps it as the
// is_active / is_deleted boolean pair; code works with the enum.
type RecordState int

const (
	StateActive RecordState = iota
	StateInactive
	StateDeleted
)

// StateFromFlags maps the storage boolean pair to a RecordState.
// A deleted record is Deleted regardless of its active flag.
func StateFromFlags(isActive, isDeleted bool) RecordState {
	switch {
	case isDeleted:
		return StateDeleted
	case isActive:
		return StateActive
	default:
		return StateInactive
	}
}

// Flags returns the storage boolean pair for the state.
func (s RecordState) Flags() (isActive, isDeleted bool) {
	switch s {
	case StateActive:
		return true, false
	case StateDeleted:
		return false, true
	default:
		return false, false
	}
}

func (s RecordState) IsActive() bool  { return s == StateActive }
func (s RecordState) IsDeleted() bool { return s == StateDeleted }

func (s RecordState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// KycStatus is the review status shared by KYC applications, PAN records,
// signatories and uploaded documents.
type KycStatus int

const (
	KycPending  KycStatus = 0
	KycApproved KycStatus = 1
	KycRejected KycStatus = 2
)

// Valid reports whether s is one of the known status codes.
func (s KycStatus) Valid() bool {
	return s == KycPending || s == KycApproved || s == KycRejected
}

// VerificationMode tells whether a record was verified automatically or is
// waiting for a human reviewer.
type VerificationMode int

const (
	ModeAuto   VerificationMode = 0
	ModeManual VerificationMode = 1
)

// OtpType is the purpose of a one-time code.
type OtpType int

const (
	OtpPhone OtpType = 0
	OtpEmail OtpType = 1
)

func (t OtpType) String() string {
	if t == OtpEmail {
		return "email"
	}
	return "phone"
}
