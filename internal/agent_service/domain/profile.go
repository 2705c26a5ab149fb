package domain

import "time"

// Plan is the profile's billing tier.
type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPaid Plan = "PAID"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool { return p == PlanFree || p == PlanPaid }

// Profile is owned by the auth subsystem; this service reads it and may
// upgrade the plan after a completed checkout.
type Profile struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Plan      Plan         `json:"plan"`
	Avatar    *string      `json:"avatar,omitempty"`
	Agent     *AgentRecord `json:"agent,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
