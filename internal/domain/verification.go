package domain

import "time"

// VerificationResult is the verdict for a single address.
type VerificationResult string

const (
	VerifyUnverified VerificationResult = ""
	VerifyValid      VerificationResult = "valid"
	VerifyInvalid    VerificationResult = "invalid"
	VerifyRisky      VerificationResult = "risky"
	VerifyCatchAll   VerificationResult = "catch_all"
	VerifyDisposable VerificationResult = "disposable"
	VerifyUnknown    VerificationResult = "unknown"
)

// SMTPCheck records what the SMTP probe concluded, or that it was skipped.
type SMTPCheck string

const (
	SMTPPassed     SMTPCheck = "passed"
	SMTPFailed     SMTPCheck = "failed"
	SMTPSkipped    SMTPCheck = "skipped"
	SMTPGreylisted SMTPCheck = "greylisted"
	SMTPBlocked    SMTPCheck = "blocked"
)

// VerificationDetails records which checks ran and what they found. It is
// kept for audit and debugging only.
type VerificationDetails struct {
	Syntax       bool      `json:"syntax"`
	MXExists     bool      `json:"mx_exists"`
	Disposable   bool      `json:"disposable"`
	CatchAll     bool      `json:"catch_all"`
	RoleAccount  bool      `json:"role_account"`
	SMTPCheck    SMTPCheck `json:"smtp_check"`
	SMTPResponse string    `json:"smtp_response,omitempty"`
}

// VerificationRecord is the outcome of verifying one address.
type VerificationRecord struct {
	Email     string              `json:"email"`
	Result    VerificationResult  `json:"result"`
	Details   VerificationDetails `json:"details"`
	Reason    string              `json:"reason"`
	CheckedAt time.Time           `json:"checked_at"`
}

// MXRecord is a single mail exchanger for a domain.
type MXRecord struct {
	Exchange string `json:"exchange"`
	Priority uint16 `json:"priority"`
}
