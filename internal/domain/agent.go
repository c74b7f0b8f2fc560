package domain

import "time"

type AgentRole string

const (
	RoleTaxAgent       AgentRole = "tax_agent"
	RoleSeniorTaxAgent AgentRole = "senior_tax_agent"
)

func (r AgentRole) Valid() bool {
	return r == RoleTaxAgent || r == RoleSeniorTaxAgent
}

// TaxAgent is a tax-professional account. The password hash never leaves
// the agents store; handlers only ever see TaxAgentPublic or the
// hash-stripped admin view.
type TaxAgent struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"` // stored lowercased
	PasswordHash string    `json:"passwordHash"`
	Name         string    `json:"name"`
	Role         AgentRole `json:"role"`

	// Profile, editable by the agent.
	PhotoBase64     string   `json:"photoBase64,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Certifications  []string `json:"certifications,omitempty"`
	ExperienceYears int      `json:"experienceYears,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
	ContactPhone    string   `json:"contactPhone,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy"`
	IsActive  bool      `json:"isActive"`
}

// TaxAgentPublic is the directory view shown to end users.
type TaxAgentPublic struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Role            AgentRole `json:"role"`
	PhotoBase64     string    `json:"photoBase64,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Certifications  []string  `json:"certifications,omitempty"`
	ExperienceYears int       `json:"experienceYears,omitempty"`
	Specializations []string  `json:"specializations,omitempty"`
	ContactPhone    string    `json:"contactPhone,omitempty"`
}

func (a *TaxAgent) Public() *TaxAgentPublic {
	return &TaxAgentPublic{
		ID:              a.ID,
		Name:            a.Name,
		Role:            a.Role,
		PhotoBase64:     a.PhotoBase64,
		Bio:             a.Bio,
		Certifications:  a.Certifications,
		ExperienceYears: a.ExperienceYears,
		Specializations: a.Specializations,
		ContactPhone:    a.ContactPhone,
	}
}

// TaxAgentAdminView is the admin listing projection: everything except the
// password hash.
type TaxAgentAdminView struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            AgentRole `json:"role"`
	PhotoBase64     string    `json:"photoBase64,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Certifications  []string  `json:"certifications,omitempty"`
	ExperienceYears int       `json:"experienceYears,omitempty"`
	Specializations []string  `json:"specializations,omitempty"`
	ContactPhone    string    `json:"contactPhone,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	CreatedBy       string    `json:"createdBy"`
	IsActive        bool      `json:"isActive"`
}

func (a *TaxAgent) AdminView() *TaxAgentAdminView {
	return &TaxAgentAdminView{
		ID:              a.ID,
		Email:           a.Email,
		Name:            a.Name,
		Role:            a.Role,
		PhotoBase64:     a.PhotoBase64,
		Bio:             a.Bio,
		Certifications:  a.Certifications,
		ExperienceYears: a.ExperienceYears,
		Specializations: a.Specializations,
		ContactPhone:    a.ContactPhone,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		CreatedBy:       a.CreatedBy,
		IsActive:        a.IsActive,
	}
}

// Session is a bearer-token session. Valid iff the token key still exists
// in the store and ExpiresAt is in the future.
type Session struct {
	AgentID   string    `json:"agentId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
