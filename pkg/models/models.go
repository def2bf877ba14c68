package models

import "time"

// Box statuses
const (
	BoxActive  = "active"
	BoxDeleted = "deleted"
)

// Report types
const (
	ReportBoxRegistered = "box_registered"
	ReportPickupAlert   = "pickup_alert"
	ReportPickupDetails = "pickup_details"
	ReportProblemAlert  = "problem_alert"
	ReportProblemReport = "problem_report"
)

// Report statuses
const (
	ReportNew     = "new"
	ReportCleared = "cleared"
)

// Volunteer roles
const (
	RoleRoot      = "root"
	RoleVolunteer = "volunteer"
)

// Box is a physical donation box registered at a location
type Box struct {
	BoxID        string    `gorm:"primaryKey" json:"boxId" firestore:"boxId"`
	Label        string    `json:"label" firestore:"label"`
	Address      string    `gorm:"not null" json:"address" firestore:"address"`
	City         string    `json:"city" firestore:"city"`
	State        string    `json:"state" firestore:"state"`
	Boxes        int       `gorm:"default:1" json:"boxes" firestore:"boxes"`
	Lat          *float64  `json:"lat" firestore:"lat"`
	Lng          *float64  `json:"lng" firestore:"lng"`
	Volunteer    string    `json:"volunteer" firestore:"volunteer"`
	VolunteerUID string    `gorm:"index" json:"volunteerUid" firestore:"volunteerUid"`
	ContactName  string    `json:"contactName" firestore:"contactName"`
	ContactEmail string    `json:"contactEmail" firestore:"contactEmail"`
	ContactPhone string    `json:"contactPhone" firestore:"contactPhone"`
	Status       string    `gorm:"index;default:active" json:"status" firestore:"status"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}

// Report is an immutable status event attached to a box
type Report struct {
	ID            string     `gorm:"primaryKey" json:"id" firestore:"-"`
	BoxID         string     `gorm:"index;not null" json:"boxId" firestore:"boxId"`
	ReportType    string     `gorm:"not null" json:"reportType" firestore:"reportType"`
	Description   string     `json:"description" firestore:"description"`
	Notes         string     `json:"notes" firestore:"notes"`
	ReporterUID   *string    `json:"reporterUid" firestore:"reporterUid"`
	ReporterName  *string    `json:"reporterName" firestore:"reporterName"`
	ReporterEmail *string    `json:"reporterEmail" firestore:"reporterEmail"`
	Status        string     `gorm:"index;not null" json:"status" firestore:"status"`
	Timestamp     time.Time  `gorm:"index" json:"timestamp" firestore:"timestamp"`
	Label         string     `json:"label" firestore:"label"`
	Address       string     `json:"address" firestore:"address"`
	City          string     `json:"city" firestore:"city"`
	State         string     `json:"state" firestore:"state"`
	Volunteer     string     `json:"volunteer" firestore:"volunteer"`
	ClearedAt     *time.Time `json:"clearedAt,omitempty" firestore:"clearedAt"`
	ClearedBy     string     `json:"clearedBy,omitempty" firestore:"clearedBy"`
}

// AuthorizedVolunteer grants privileged access to the caller with this UID
type AuthorizedVolunteer struct {
	UID          string    `gorm:"primaryKey" json:"uid" firestore:"-"`
	Email        string    `json:"email" firestore:"email"`
	DisplayName  string    `json:"displayName" firestore:"displayName"`
	AuthorizedAt time.Time `json:"authorizedAt" firestore:"authorizedAt"`
	Role         string    `gorm:"default:volunteer" json:"role" firestore:"role"`
	Deleted      bool      `gorm:"default:false" json:"deleted" firestore:"deleted"`
}

// SharedConfig is the singleton settings document
type SharedConfig struct {
	ID        string    `gorm:"primaryKey" json:"-" firestore:"-"`
	Passcode  string    `json:"-" firestore:"passcode"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// TableName pins the singleton table name
func (SharedConfig) TableName() string { return "config" }

// LocationSuggestion is a candidate site imported from the volunteer spreadsheet
type LocationSuggestion struct {
	ID            string    `gorm:"primaryKey" json:"id" firestore:"-"`
	Label         string    `json:"label" firestore:"label"`
	Address       string    `json:"address" firestore:"address"`
	City          string    `json:"city" firestore:"city"`
	State         string    `json:"state" firestore:"state"`
	ContactName   string    `json:"contactName" firestore:"contactName"`
	ContactEmail  string    `json:"contactEmail" firestore:"contactEmail"`
	ContactPhone  string    `json:"contactPhone" firestore:"contactPhone"`
	SearchLabel   string    `gorm:"index" json:"searchLabel" firestore:"searchLabel"`
	SearchAddress string    `gorm:"index" json:"searchAddress" firestore:"searchAddress"`
	SourceRow     int       `json:"sourceRow" firestore:"sourceRow"`
	SyncedAt      time.Time `json:"syncedAt" firestore:"syncedAt"`
}

// AuditEntry records a privileged mutation
type AuditEntry struct {
	ID         string         `gorm:"primaryKey" json:"id" firestore:"-"`
	Action     string         `gorm:"index;not null" json:"action" firestore:"action"`
	ActorID    string         `json:"actorId" firestore:"actorId"`
	ActorEmail string         `json:"actorEmail" firestore:"actorEmail"`
	Timestamp  time.Time      `json:"timestamp" firestore:"timestamp"`
	Details    map[string]any `gorm:"serializer:json" json:"details" firestore:"details"`
}

// TableName keeps audit rows in their own table
func (AuditEntry) TableName() string { return "audit_logs" }

// CachedLocation is the public projection of a box written to the locations cache
type CachedLocation struct {
	BoxID     string   `json:"boxId"`
	Label     string   `json:"label"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Boxes     int      `json:"boxes"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Volunteer string   `json:"volunteer"`
	Status    string   `json:"status"`
}

// LocationsCache is the envelope stored in the cache blob
type LocationsCache struct {
	Version     int              `json:"version"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Count       int              `json:"count"`
	Locations   []CachedLocation `json:"locations"`
}

// ProvisionRequest is the input for registering a new box
type ProvisionRequest struct {
	BoxID        string `json:"boxId"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Label        string `json:"label"`
	Boxes        int    `json:"boxes"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
	Passcode     string `json:"passcode"`
}

// ProvisionResponse is returned after a box is registered
type ProvisionResponse struct {
	Success bool   `json:"success"`
	BoxID   string `json:"boxId"`
	Message string `json:"message"`
}

// ReportRequest is a public status report for a box
type ReportRequest struct {
	BoxID        string `json:"boxId"`
	FormType     string `json:"formType"`
	Notes        string `json:"notes"`
	Description  string `json:"description"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail" binding:"omitempty,email"`
}

// ReportResponse is returned after a report is stored
type ReportResponse struct {
	Success    bool   `json:"success"`
	RecordID   string `json:"recordId"`
	EmailSent  bool   `json:"emailSent"`
	EmailError string `json:"emailError,omitempty"`
}

// PasscodeRequest redeems the shared passcode
type PasscodeRequest struct {
	Code string `json:"code"`
}

// AuthStatus answers whether the caller is an authorized volunteer
type AuthStatus struct {
	IsAuthorized bool   `json:"isAuthorized"`
	DisplayName  string `json:"displayName"`
}

// JobResult is the outcome of a sync or cache refresh
type JobResult struct {
	Success bool   `json:"success"`
	Synced  int    `json:"synced"`
	Count   int    `json:"count"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// BoxHistory is a box with its reports in chronological order
type BoxHistory struct {
	Box     Box      `json:"box"`
	Reports []Report `json:"reports"`
}
