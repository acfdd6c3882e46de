package quickai

import (
	"time"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/preferences"
	"github.com/quickai/quickai/internal/domain/quota"
	engineuc "github.com/quickai/quickai/internal/usecase/engine"
)

// Resource is a rate-limited action kind.
type Resource string

// Resource kinds.
const (
	Text  Resource = Resource(domain.ResourceText)
	Image Resource = Resource(domain.ResourceImage)
)

// Unlimited marks an uncapped budget in Decision.Remaining and Status limits.
const Unlimited int64 = quota.Unlimited

// Reason explains a denial.
type Reason string

// Denial reasons. ReasonNone accompanies every allowed decision.
const (
	ReasonNone                 Reason = Reason(quota.ReasonNone)
	ReasonPremiumModelRequired Reason = Reason(quota.ReasonPremiumModelRequired)
	ReasonDailyLimitReached    Reason = Reason(quota.ReasonDailyLimitReached)
)

// Decision is the outcome of CheckAndConsume.
type Decision struct {
	Allowed   bool
	Remaining int64 // Unlimited for premium users
	Reason    Reason
}

// Entitlement is an installed premium grant.
type Entitlement struct {
	UserID    string
	GrantedAt time.Time
	ExpiresAt *time.Time // nil = never expires
}

// Status summarizes a user's premium state and today's usage.
type Status struct {
	UserID         string
	IsPremium      bool
	Unlimited      bool
	ExpiresAt      *time.Time
	RemainingDays  int
	Day            string // YYYY-MM-DD in the configured timezone
	ResetsAt       time.Time
	TextUsedToday  int64
	TextLimit      int64
	ImageUsedToday int64
	ImageLimit     int64
}

// Preferences are a user's model and agent selections.
type Preferences struct {
	TextModel  string
	ImageModel string
	Agent      string
}

// PreferencesPatch is a partial update; nil fields keep the current value.
type PreferencesPatch struct {
	TextModel  *string
	ImageModel *string
	Agent      *string
}

// --- converters ---

func decisionFromDomain(d quota.Decision) Decision {
	return Decision{Allowed: d.Allowed, Remaining: d.Remaining, Reason: Reason(d.Reason)}
}

func entitlementFromDomain(e entitlement.Entitlement) Entitlement {
	out := Entitlement{UserID: e.UserID(), GrantedAt: e.GrantedAt()}
	if exp, ok := e.ExpiresAt(); ok {
		out.ExpiresAt = &exp
	}
	return out
}

func statusFromDomain(s engineuc.Status) Status {
	return Status{
		UserID:         s.UserID,
		IsPremium:      s.IsPremium,
		Unlimited:      s.Unlimited,
		ExpiresAt:      s.ExpiresAt,
		RemainingDays:  s.RemainingDays,
		Day:            s.Day.String(),
		ResetsAt:       s.ResetsAt,
		TextUsedToday:  s.TextUsedToday,
		TextLimit:      s.TextLimit,
		ImageUsedToday: s.ImageUsedToday,
		ImageLimit:     s.ImageLimit,
	}
}

func preferencesFromDomain(p preferences.Preferences) Preferences {
	return Preferences{TextModel: p.TextModel, ImageModel: p.ImageModel, Agent: p.Agent}
}

func (p PreferencesPatch) toDomain() preferences.Patch {
	return preferences.Patch{TextModel: p.TextModel, ImageModel: p.ImageModel, Agent: p.Agent}
}
