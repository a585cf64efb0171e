package models

// TournamentStatus is the effective, time-derived phase of a tournament.
// It is computed on every read and never stored.
type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "upcoming"
	TournamentStatusLive      TournamentStatus = "live"
	TournamentStatusCompleted TournamentStatus = "completed"
)

// AdminStatus is the coarse operator-set flag stored on the tournament row.
// It is distinct from TournamentStatus: an explicit "completed" here always
// overrides whatever the timestamps say.
type AdminStatus string

const (
	AdminStatusUpcoming  AdminStatus = "upcoming"
	AdminStatusCompleted AdminStatus = "completed"
)

// RegistrationStatus is the per-(tournament,user) lifecycle state.
// The absence of a row means "not registered"; rows never move backward.
type RegistrationStatus string

const (
	RegistrationStatusJoined        RegistrationStatus = "joined_pending"
	RegistrationStatusPendingReview RegistrationStatus = "pending_review"
	RegistrationStatusApproved      RegistrationStatus = "approved"
	RegistrationStatusRejected      RegistrationStatus = "rejected"
)

// CredentialStatus tracks the review state of a submitted broker credential.
type CredentialStatus string

const (
	CredentialStatusSubmitted CredentialStatus = "submitted"
	CredentialStatusVerified  CredentialStatus = "verified"
)

// ResultOutcome labels a published per-rank result.
type ResultOutcome string

const (
	ResultOutcomeWinner       ResultOutcome = "winner"
	ResultOutcomeRunnerUp     ResultOutcome = "runner_up"
	ResultOutcomeDisqualified ResultOutcome = "disqualified"
)
