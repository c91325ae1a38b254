package imports

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Kind names the engine operation an ImportRun recorded.
type Kind string

const (
	KindConcepts           Kind = "concepts"
	KindMappings           Kind = "mappings"
	KindVariants           Kind = "variants"
	KindAggregatesMapping  Kind = "aggregates_mapping"
	KindAggregatesNames    Kind = "aggregates_names"
	KindAggregatesDelete   Kind = "aggregates_delete"
	KindAggregatesAssemble Kind = "aggregates_assemble"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ImportRun is one row of import history.
type ImportRun struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind                 string         `gorm:"column:kind;not null;index" json:"kind"`
	Status               string         `gorm:"column:status;not null;index" json:"status"`
	FacetID              string         `gorm:"column:facet_id;index" json:"facet_id,omitempty"`
	Label                string         `gorm:"column:label" json:"label,omitempty"`
	Count                int            `gorm:"column:count;not null;default:0" json:"count"`
	CreatedConcepts      int            `gorm:"column:created_concepts;not null;default:0" json:"created_concepts"`
	CreatedRelationships int            `gorm:"column:created_relationships;not null;default:0" json:"created_relationships"`
	ElapsedMS            int64          `gorm:"column:elapsed_ms;not null;default:0" json:"elapsed_ms"`
	ErrorCode            string         `gorm:"column:error_code" json:"error_code,omitempty"`
	Error                string         `gorm:"column:error" json:"error,omitempty"`
	Options              datatypes.JSON `gorm:"column:options" json:"options,omitempty"`
	RequestID            string         `gorm:"column:request_id;index" json:"request_id,omitempty"`
	Caller               string         `gorm:"column:caller" json:"caller,omitempty"`
	FinishedAt           *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
}

func (ImportRun) TableName() string { return "import_run" }

func (r *ImportRun) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}
	return nil
}
