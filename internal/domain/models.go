package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the canonical textual form of timestamps in responses.
const TimestampLayout = time.RFC3339Nano

// Claim is one earned-reward obligation for a (mission, user) pair.
type Claim struct {
	ID        uuid.UUID   `json:"id"`
	MissionID uuid.UUID   `json:"mission_id"`
	UserID    uuid.UUID   `json:"user_id"`
	Status    ClaimStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ClaimDetail records one delivery attempt of a claim on the external ledger.
// Details are never modified after insertion.
type ClaimDetail struct {
	ID               uuid.UUID `json:"id"`
	ClaimID          uuid.UUID `json:"claim_id"`
	TransactionHash  string    `json:"transaction_hash"`
	RecipientUserID  uuid.UUID `json:"recipient_user_id"`
	RecipientAddress string    `json:"recipient_address"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewClaimPayload carries the caller-supplied fields of a new claim.
type NewClaimPayload struct {
	MissionID uuid.UUID `json:"mission_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func (p NewClaimPayload) Validate() error {
	if p.MissionID == uuid.Nil {
		return invalidPayload("mission_id is required")
	}
	if p.UserID == uuid.Nil {
		return invalidPayload("user_id is required")
	}
	return nil
}

// NewClaimDetailPayload carries the caller-supplied fields of a delivery attempt.
type NewClaimDetailPayload struct {
	ClaimID          uuid.UUID `json:"claim_id"`
	TransactionHash  string    `json:"transaction_hash"`
	RecipientUserID  uuid.UUID `json:"recipient_user_id"`
	RecipientAddress string    `json:"recipient_address"`
}

func (p NewClaimDetailPayload) Validate() error {
	if p.ClaimID == uuid.Nil {
		return invalidPayload("claim_id is required")
	}
	if strings.TrimSpace(p.TransactionHash) == "" {
		return invalidPayload("transaction_hash is required")
	}
	if p.RecipientUserID == uuid.Nil {
		return invalidPayload("recipient_user_id is required")
	}
	if strings.TrimSpace(p.RecipientAddress) == "" {
		return invalidPayload("recipient_address is required")
	}
	return nil
}

// AttemptOutcome is the result reported by the external submission client.
type AttemptOutcome string

const (
	OutcomeConfirmed AttemptOutcome = "confirmed"
	OutcomeFailed    AttemptOutcome = "failed"
	OutcomeRetryable AttemptOutcome = "retryable"
)

// TargetStatus is the claim status an outcome moves a Processing claim to.
func (o AttemptOutcome) TargetStatus() (ClaimStatus, bool) {
	switch o {
	case OutcomeConfirmed:
		return StatusCompleted, true
	case OutcomeFailed:
		return StatusFailed, true
	case OutcomeRetryable:
		return StatusProcessing, true
	}
	return "", false
}

// Attempt is the plain-data result of one send on the external ledger.
type Attempt struct {
	TransactionHash  string         `json:"transaction_hash"`
	RecipientUserID  uuid.UUID      `json:"recipient_user_id"`
	RecipientAddress string         `json:"recipient_address"`
	Outcome          AttemptOutcome `json:"outcome"`
}

// Detail builds the detail payload recorded for this attempt.
func (a Attempt) Detail(claimID uuid.UUID) NewClaimDetailPayload {
	return NewClaimDetailPayload{
		ClaimID:          claimID,
		TransactionHash:  a.TransactionHash,
		RecipientUserID:  a.RecipientUserID,
		RecipientAddress: a.RecipientAddress,
	}
}

// ClaimResponse is the external view of a Claim.
type ClaimResponse struct {
	ID        string `json:"id"`
	MissionID string `json:"mission_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func NewClaimResponse(c Claim) ClaimResponse {
	return ClaimResponse{
		ID:        c.ID.String(),
		MissionID: c.MissionID.String(),
		UserID:    c.UserID.String(),
		Status:    string(c.Status),
		CreatedAt: formatTimestamp(c.CreatedAt),
		UpdatedAt: formatTimestamp(c.UpdatedAt),
	}
}

// ClaimDetailResponse is the external view of a ClaimDetail.
type ClaimDetailResponse struct {
	ID               string `json:"id"`
	ClaimID          string `json:"claim_id"`
	TransactionHash  string `json:"transaction_hash"`
	RecipientUserID  string `json:"recipient_user_id"`
	RecipientAddress string `json:"recipient_address"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func NewClaimDetailResponse(d ClaimDetail) ClaimDetailResponse {
	return ClaimDetailResponse{
		ID:               d.ID.String(),
		ClaimID:          d.ClaimID.String(),
		TransactionHash:  d.TransactionHash,
		RecipientUserID:  d.RecipientUserID.String(),
		RecipientAddress: d.RecipientAddress,
		CreatedAt:        formatTimestamp(d.CreatedAt),
		UpdatedAt:        formatTimestamp(d.UpdatedAt),
	}
}

// ClaimWithDetailsResponse is a claim together with its attempt history.
type ClaimWithDetailsResponse struct {
	Claim   ClaimResponse         `json:"claim"`
	Details []ClaimDetailResponse `json:"details"`
}

func NewClaimWithDetailsResponse(c Claim, details []ClaimDetail) ClaimWithDetailsResponse {
	resp := ClaimWithDetailsResponse{
		Claim:   NewClaimResponse(c),
		Details: make([]ClaimDetailResponse, 0, len(details)),
	}
	for _, d := range details {
		resp.Details = append(resp.Details, NewClaimDetailResponse(d))
	}
	return resp
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
