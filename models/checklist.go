package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChecklistEntry is the durable completion fact for one task on one
// calendar day. The date field is always normalized to start of day, so
// the unique (task, date) index keys all writes for a day to one document.
type ChecklistEntry struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID      primitive.ObjectID `json:"taskId" bson:"task"`
	Date        time.Time          `json:"date" bson:"date"`
	Status      bool               `json:"status" bson:"status"`
	StaffName   string             `json:"staffName" bson:"staffName"`
	CompletedAt *time.Time         `json:"completedAt" bson:"completedAt,omitempty"`
	CompletedBy string             `json:"completedBy" bson:"completedBy,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TaskView is the catalog half of a projection row.
type TaskView struct {
	ID          primitive.ObjectID `json:"id"`
	TaskID      string             `json:"taskId"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	AreaName    string             `json:"areaName"`
	AreaCode    string             `json:"areaCode"`
}

// EntryView is the fact half of a projection row. Rows without a stored
// fact carry the zero value: not done, no staff name, no timestamp.
type EntryView struct {
	Status      bool       `json:"status"`
	StaffName   string     `json:"staffName"`
	CompletedAt *time.Time `json:"completedAt"`
	CompletedBy string     `json:"completedBy,omitempty"`
}

// ProjectionRow joins one task with its fact for a requested date. Rows
// are ephemeral; they are never persisted.
type ProjectionRow struct {
	Task  TaskView  `json:"task"`
	Entry EntryView `json:"entry"`
}

// Statistics summarizes completion over a projection.
type Statistics struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
}

// EntryPatch is a partial single-entry update. Nil fields are left
// untouched by the upsert.
type EntryPatch struct {
	Status    *bool   `json:"status,omitempty"`
	StaffName *string `json:"staffName,omitempty"`
}

// BulkEntry is one tuple of a whole-snapshot bulk save.
type BulkEntry struct {
	TaskID    string `json:"taskId"`
	Status    bool   `json:"status"`
	StaffName string `json:"staffName"`
}

// EntryWrite is a fully resolved fact write handed to the store. The
// service decides completion-timestamp semantics before it gets here.
type EntryWrite struct {
	TaskID      primitive.ObjectID
	Status      *bool
	StaffName   *string
	CompletedAt *time.Time // meaningful only when Status is set; nil clears
	CompletedBy string
}

// ExportFile is a rendered report payload.
type ExportFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// StartOfDay normalizes a timestamp to midnight UTC of its calendar day.
// All fact keys use this so every write for a day lands on the same
// (task, date) pair regardless of time-of-day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
