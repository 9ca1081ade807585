package models

import (
	"time"

	"gorm.io/gorm"
)

// FindingKind classifies the outcome of a single upload-event evaluation.
type FindingKind string

const (
	FindingNormal               FindingKind = "normal"
	FindingExtensionSpoofed     FindingKind = "extension_spoofed"
	FindingSuspectedEmptyScript FindingKind = "suspected_empty_script"
)

// MetricSample is one hardware utilization reading. Nil pointer fields mean
// the corresponding sensor read failed for that cycle; the sample is still
// recorded so the day's series has no gaps.
type MetricSample struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Timestamp      time.Time `json:"timestamp" gorm:"index"`
	Date           string    `json:"date" gorm:"index;size:10"` // YYYY-MM-DD in the appliance timezone
	CPUPct         *float64  `json:"cpu_pct"`
	MemPct         *float64  `json:"mem_pct"`
	StoragePct     *float64  `json:"storage_pct"`
	EstimatedWatts *float64  `json:"estimated_watts"`
	CreatedAt      time.Time `json:"created_at"`
}

// Finding is the immutable result of classifying one uploaded file.
type Finding struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	Timestamp      time.Time   `json:"timestamp" gorm:"index"`
	Date           string      `json:"date" gorm:"index;size:10"`
	FilePath       string      `json:"file_path"`
	Kind           FindingKind `json:"kind" gorm:"index"`
	DeclaredExt    string      `json:"declared_ext,omitempty"`
	DetectedSig    string      `json:"detected_sig,omitempty"`
	SizeBytes      int64       `json:"size_bytes"`
	ThresholdBytes int64       `json:"threshold_bytes,omitempty"`
	Detail         string      `json:"detail,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// RollupRecord marks a calendar date whose daily report has been delivered.
// At most one record ever exists per date; it is the idempotency anchor for
// the daily scheduler.
type RollupRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Date        string    `json:"date" gorm:"uniqueIndex;size:10"`
	GeneratedAt time.Time `json:"generated_at"`
	ArtifactRef string    `json:"artifact_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// User represents a dashboard user.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Username  string         `json:"username" gorm:"uniqueIndex;not null"`
	Email     string         `json:"email" gorm:"uniqueIndex"`
	Password  string         `json:"password" gorm:"not null"` // hashed
	Role      string         `json:"role" gorm:"default:'user'"` // admin, user
	IsActive  bool           `json:"is_active" gorm:"default:true"`
	LastSeen  *time.Time     `json:"last_seen"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}
