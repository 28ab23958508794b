package models

import "time"

const (
	ONBOARDING_STATUS_PENDING     = "pending"
	ONBOARDING_STATUS_IN_PROGRESS = "in_progress"
	ONBOARDING_STATUS_COMPLETED   = "completed"
)

// StateTTL is how long a minted callback nonce stays valid.
const StateTTL = 30 * time.Minute

// OnboardingToken records one onboarding attempt of a ClientAccount.
// State and StateExpiresAt are only set while the attempt is in progress.
type OnboardingToken struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Token          string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"-"`
	ClientID       string     `gorm:"type:char(36);not null;index:idx_onboarding_tokens_client_state,priority:1" json:"client_id"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	State          *string    `gorm:"type:varchar(191);default:null;index:idx_onboarding_tokens_client_state,priority:2" json:"-"`
	StateExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"state_expires_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OnboardingToken) TableName() string {
	return "onboarding_tokens"
}

var onboardingStatuses = []string{
	ONBOARDING_STATUS_PENDING,
	ONBOARDING_STATUS_IN_PROGRESS,
	ONBOARDING_STATUS_COMPLETED,
}

// CanTransition reports whether from -> to is an allowed lifecycle step.
func CanTransition(from, to string) bool {
	switch {
	case from == ONBOARDING_STATUS_PENDING && to == ONBOARDING_STATUS_IN_PROGRESS:
		return true
	case from == ONBOARDING_STATUS_IN_PROGRESS && to == ONBOARDING_STATUS_IN_PROGRESS:
		return true
	case from == ONBOARDING_STATUS_IN_PROGRESS && to == ONBOARDING_STATUS_COMPLETED:
		return true
	default:
		return false
	}
}

// TransitionSources lists the statuses from which a token may move to to.
func TransitionSources(to string) []string {
	var from []string
	for _, status := range onboardingStatuses {
		if CanTransition(status, to) {
			from = append(from, status)
		}
	}
	return from
}

// IsRedeemable reports whether a setup link may still be requested with this token.
func (t *OnboardingToken) IsRedeemable() bool {
	return CanTransition(t.Status, ONBOARDING_STATUS_IN_PROGRESS)
}

// StateExpired reports whether the minted nonce is past its expiry at now.
// A missing expiry counts as expired.
func (t *OnboardingToken) StateExpired(now time.Time) bool {
	if t.StateExpiresAt == nil {
		return true
	}
	return now.After(*t.StateExpiresAt)
}
