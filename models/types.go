// ABOUTME: Data models for CRM entities
// ABOUTME: Defines User, Deal, Activity, Contact, Competitor, and File structs
package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleSalesRep = "SALES_REP"
	RoleClient   = "CLIENT"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	CompanyName string    `json:"company_name,omitempty"`
	SalesGoal   float64   `json:"sales_goal"`
	CreatedAt   time.Time `json:"created_at"`
}

// Deal stages.
const (
	StageCourting   = "COURTING"
	StageRegistered = "REGISTERED"
	StageQuoted     = "QUOTED"
	StageWon        = "WON"
	StageClosedLost = "CLOSED_LOST"
)

// Stages lists every pipeline stage in pipeline order.
var Stages = []string{StageCourting, StageRegistered, StageQuoted, StageWon, StageClosedLost}

// Forecast categories.
const (
	ForecastCommit   = "COMMIT"
	ForecastBestCase = "BEST_CASE"
	ForecastPipeline = "PIPELINE"
	ForecastOmit     = "OMIT"
)

var ForecastCategories = []string{ForecastCommit, ForecastBestCase, ForecastPipeline, ForecastOmit}

// DefaultProbability is applied to new deals that do not set one.
const DefaultProbability = 10

type Deal struct {
	ID                     uuid.UUID  `json:"id"`
	SalesRepID             uuid.UUID  `json:"sales_rep_id"`
	DealName               string     `json:"deal_name"`
	ClientCompanyName      string     `json:"client_company_name"`
	Stage                  string     `json:"stage"`
	DealValue              float64    `json:"deal_value"`
	GrossProfit            float64    `json:"gross_profit"`
	ExpectedCloseDate      *time.Time `json:"expected_close_date,omitempty"`
	Probability            int        `json:"probability"`
	ForecastCategory       string     `json:"forecast_category"`
	MeddicMetrics          string     `json:"meddic_metrics,omitempty"`
	MeddicEconomicBuyer    string     `json:"meddic_economic_buyer,omitempty"`
	MeddicDecisionCriteria string     `json:"meddic_decision_criteria,omitempty"`
	MeddicDecisionProcess  string     `json:"meddic_decision_process,omitempty"`
	MeddicIdentifyPain     string     `json:"meddic_identify_pain,omitempty"`
	MeddicChampion         string     `json:"meddic_champion,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Activity types.
const (
	ActivityCall    = "CALL"
	ActivityEmail   = "EMAIL"
	ActivityMeeting = "MEETING"
	ActivityDemo    = "DEMO"
	ActivityNote    = "NOTE"
)

var ActivityTypes = []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityDemo, ActivityNote}

type Activity struct {
	ID           uuid.UUID  `json:"id"`
	DealID       uuid.UUID  `json:"deal_id"`
	Type         string     `json:"type"`
	Subject      string     `json:"subject"`
	Notes        string     `json:"notes,omitempty"`
	ActivityDate time.Time  `json:"activity_date"`
	NextSteps    string     `json:"next_steps,omitempty"`
	NextStepsDue *time.Time `json:"next_steps_due,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Contact roles.
const (
	ContactChampion       = "CHAMPION"
	ContactEconomicBuyer  = "ECONOMIC_BUYER"
	ContactTechnicalBuyer = "TECHNICAL_BUYER"
	ContactInfluencer     = "INFLUENCER"
	ContactBlocker        = "BLOCKER"
)

var ContactRoles = []string{ContactChampion, ContactEconomicBuyer, ContactTechnicalBuyer, ContactInfluencer, ContactBlocker}

type Contact struct {
	ID        uuid.UUID `json:"id"`
	DealID    uuid.UUID `json:"deal_id"`
	Name      string    `json:"name"`
	Title     string    `json:"title,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Notes     string    `json:"notes,omitempty"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Competitor statuses.
const (
	CompetitorActive     = "ACTIVE"
	CompetitorEliminated = "ELIMINATED"
	CompetitorUnknown    = "UNKNOWN"
)

var CompetitorStatuses = []string{CompetitorActive, CompetitorEliminated, CompetitorUnknown}

type Competitor struct {
	ID         uuid.UUID `json:"id"`
	DealID     uuid.UUID `json:"deal_id"`
	Name       string    `json:"name"`
	Strengths  string    `json:"strengths,omitempty"`
	Weaknesses string    `json:"weaknesses,omitempty"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// File categories.
const (
	FileInternal = "INTERNAL"
	FileExternal = "EXTERNAL"
)

var FileCategories = []string{FileInternal, FileExternal}

type File struct {
	ID         uuid.UUID `json:"id"`
	DealID     uuid.UUID `json:"deal_id"`
	Filename   string    `json:"filename"`
	Filepath   string    `json:"-"`
	Category   string    `json:"category"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DealFilter narrows a deal listing. Nil fields are not applied.
type DealFilter struct {
	SalesRepID        *uuid.UUID
	ClientCompanyName *string
	Stages            []string
	Limit             int
}

// Matches reports whether deal passes the filter. It is the in-memory twin of
// the SQL the db package builds from the same filter.
func (f DealFilter) Matches(deal *Deal) bool {
	if f.SalesRepID != nil && deal.SalesRepID != *f.SalesRepID {
		return false
	}
	if f.ClientCompanyName != nil && deal.ClientCompanyName != *f.ClientCompanyName {
		return false
	}
	if f.Stages != nil && !Contains(f.Stages, deal.Stage) {
		return false
	}
	return true
}

// StageCount is one row of a group-by-stage query.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// Contains reports whether values holds v.
func Contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func IsValidStage(stage string) bool { return Contains(Stages, stage) }

func IsValidForecastCategory(category string) bool {
	return Contains(ForecastCategories, category)
}

func IsValidActivityType(t string) bool { return Contains(ActivityTypes, t) }

func IsValidContactRole(role string) bool { return Contains(ContactRoles, role) }

func IsValidCompetitorStatus(status string) bool {
	return Contains(CompetitorStatuses, status)
}

func IsValidFileCategory(category string) bool { return Contains(FileCategories, category) }

func IsValidRole(role string) bool { return role == RoleSalesRep || role == RoleClient }
