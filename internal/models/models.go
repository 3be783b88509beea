package models

import (
	"time"

	"gorm.io/datatypes"
)

// SimulationRun status values
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// User represents a registered account
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"uniqueIndex;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserProfile holds simulation preferences and usage statistics
type UserProfile struct {
	ID                    uint       `json:"id" gorm:"primaryKey"`
	UserID                uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	DefaultBatteryType    string     `json:"default_battery_type" gorm:"default:'lithium-ion'"`
	DefaultModel          string     `json:"default_model" gorm:"default:'SPM'"`
	TotalSimulations      int64      `json:"total_simulations" gorm:"default:0"`
	SuccessfulSimulations int64      `json:"successful_simulations" gorm:"default:0"`
	LastSimulation        *time.Time `json:"last_simulation"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// SuccessRate returns the percentage of successful simulations.
func (p *UserProfile) SuccessRate() float64 {
	if p.TotalSimulations == 0 {
		return 0
	}
	return float64(p.SuccessfulSimulations) / float64(p.TotalSimulations) * 100
}

// SimulationRun stores one simulation execution and its outcome
type SimulationRun struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	BatteryType  string         `json:"battery_type" gorm:"not null"`
	ModelName    string         `json:"model_name" gorm:"not null"`
	ParameterSet string         `json:"parameter_set"`
	Parameters   datatypes.JSON `json:"parameters"`
	Status       string         `json:"status" gorm:"not null;default:'pending'"`
	StartedAt    *time.Time     `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
	Duration     float64        `json:"duration"` // wall-clock seconds
	Summary      string         `json:"summary"`
	ErrorMessage string         `json:"error_message"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SimulationTemplate is a reusable simulation configuration
type SimulationTemplate struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description"`
	BatteryType string         `json:"battery_type" gorm:"not null"`
	ModelName   string         `json:"model_name" gorm:"not null"`
	Parameters  datatypes.JSON `json:"parameters"`
	IsPublic    bool           `json:"is_public" gorm:"default:false"`
	CreatedBy   uint           `json:"created_by" gorm:"index;not null"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SimulationShare publishes a run under an opaque token
type SimulationShare struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SimulationID uint      `json:"simulation_id" gorm:"index;not null"`
	SharedBy     uint      `json:"shared_by" gorm:"not null"`
	ShareToken   string    `json:"share_token" gorm:"uniqueIndex;not null"`
	ViewCount    int64     `json:"view_count" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
}

// PasswordResetCode is a single-use numeric passcode.
// Expiry is checked at verification time; rows are never swept.
type PasswordResetCode struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Code      int       `json:"-" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	Consumed  bool      `json:"consumed" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// APIUsage tracks per-request usage for monitoring
type APIUsage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index"`
	Endpoint   string    `json:"endpoint" gorm:"index;not null"`
	Method     string    `json:"method" gorm:"not null"`
	StatusCode int       `json:"status_code"`
	DurationMs float64   `json:"duration_ms"`
	IPAddress  string    `json:"ip_address"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}
