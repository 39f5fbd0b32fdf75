package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"clinic-checklist/checklist-service/logging"
	"clinic-checklist/checklist-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskCatalog is the read-only catalog collaborator.
type TaskCatalog interface {
	ListActiveTasks(ctx context.Context, areaID string) ([]models.CatalogTask, error)
	GetArea(ctx context.Context, areaID string) (*models.Area, error)
}

// FactStore is the durable store of per-(task, date) completion facts.
// Implementations must guarantee atomic per-key upserts.
type FactStore interface {
	FindByDate(ctx context.Context, date time.Time) ([]models.ChecklistEntry, error)
	Upsert(ctx context.Context, date time.Time, write models.EntryWrite) (*models.ChecklistEntry, error)
	BulkUpsert(ctx context.Context, date time.Time, writes []models.EntryWrite) (int, error)
}

// ChecklistService is the daily reconciliation engine: it projects the
// task catalog onto the sparse fact store, writes facts through
// idempotent upserts, and derives completion statistics.
type ChecklistService struct {
	catalog TaskCatalog
	facts   FactStore
	now     func() time.Time
}

func NewChecklistService(catalog TaskCatalog, facts FactStore) *ChecklistService {
	return &ChecklistService{
		catalog: catalog,
		facts:   facts,
		now:     time.Now,
	}
}

// GetChecklistByDate builds the daily projection: one row per active
// task in scope, merged with its fact for that date when one exists.
// Tasks without a fact get a default not-done row, never omitted.
func (s *ChecklistService) GetChecklistByDate(ctx context.Context, date string, areaID string) ([]models.ProjectionRow, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	tasks, err := s.catalog.ListActiveTasks(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task catalog: %v", err)
	}

	entries, err := s.facts.FindByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist entries: %v", err)
	}

	entryByTask := make(map[primitive.ObjectID]models.ChecklistEntry, len(entries))
	for _, entry := range entries {
		entryByTask[entry.TaskID] = entry
	}

	rows := make([]models.ProjectionRow, 0, len(tasks))
	for _, item := range tasks {
		row := models.ProjectionRow{
			Task: models.TaskView{
				ID:          item.Task.ID,
				TaskID:      item.Task.TaskID,
				Name:        item.Task.Name,
				Description: item.Task.Description,
				AreaName:    item.Area.Name,
				AreaCode:    item.Area.Code,
			},
		}
		if entry, ok := entryByTask[item.Task.ID]; ok {
			row.Entry = models.EntryView{
				Status:      entry.Status,
				StaffName:   entry.StaffName,
				CompletedAt: entry.CompletedAt,
				CompletedBy: entry.CompletedBy,
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// UpdateEntry upserts one fact and returns the task's refreshed
// projection row. Completion timestamp semantics are decided here, not
// by the caller: a status turning true stamps the server clock, a
// status turning false clears it. The staff name is stored verbatim
// when provided.
func (s *ChecklistService) UpdateEntry(ctx context.Context, taskID string, date string, patch models.EntryPatch, userID string) (*models.ProjectionRow, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	taskObjectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, fmt.Errorf("invalid task ID format: %v", err)
	}

	write := models.EntryWrite{
		TaskID:      taskObjectID,
		Status:      patch.Status,
		StaffName:   patch.StaffName,
		CompletedBy: userID,
	}
	if patch.Status != nil && *patch.Status {
		completedAt := s.now().UTC()
		write.CompletedAt = &completedAt
	}

	entry, err := s.facts.Upsert(ctx, day, write)
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: ENTRY_UPSERTED, Description: Checklist entry for task %s on %s updated by %s", taskID, day.Format("2006-01-02"), userID)

	row := models.ProjectionRow{
		Entry: models.EntryView{
			Status:      entry.Status,
			StaffName:   entry.StaffName,
			CompletedAt: entry.CompletedAt,
			CompletedBy: entry.CompletedBy,
		},
	}

	// Populate the catalog half of the row when the task is in scope.
	tasks, err := s.catalog.ListActiveTasks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load task catalog: %v", err)
	}
	for _, item := range tasks {
		if item.Task.ID == taskObjectID {
			row.Task = models.TaskView{
				ID:          item.Task.ID,
				TaskID:      item.Task.TaskID,
				Name:        item.Task.Name,
				Description: item.Task.Description,
				AreaName:    item.Area.Name,
				AreaCode:    item.Area.Code,
			}
			break
		}
	}

	return &row, nil
}

// SaveChecklist applies a whole-snapshot bulk save: every displayed
// task's final state for one date, as independent upserts. Replaying an
// identical save leaves the displayed state unchanged, though done
// entries get their completion timestamp refreshed to now (it records
// the last confirmation time).
func (s *ChecklistService) SaveChecklist(ctx context.Context, date string, entries []models.BulkEntry, userID string) (int, error) {
	day, err := ParseDate(date)
	if err != nil {
		return 0, err
	}

	writes := make([]models.EntryWrite, 0, len(entries))
	for _, entry := range entries {
		taskObjectID, err := primitive.ObjectIDFromHex(entry.TaskID)
		if err != nil {
			return 0, fmt.Errorf("invalid task ID format: %v", err)
		}

		status := entry.Status
		staffName := entry.StaffName
		write := models.EntryWrite{
			TaskID:      taskObjectID,
			Status:      &status,
			StaffName:   &staffName,
			CompletedBy: userID,
		}
		if status {
			completedAt := s.now().UTC()
			write.CompletedAt = &completedAt
		}
		writes = append(writes, write)
	}

	saved, err := s.facts.BulkUpsert(ctx, day, writes)
	if err != nil {
		return saved, err
	}

	logging.Logger.Infof("Event ID: CHECKLIST_SAVED, Description: Saved %d checklist entries for %s by %s", saved, day.Format("2006-01-02"), userID)
	return saved, nil
}

// GetStatistics reduces the projection for a date to completion counts.
func (s *ChecklistService) GetStatistics(ctx context.Context, date string, areaID string) (*models.Statistics, error) {
	rows, err := s.GetChecklistByDate(ctx, date, areaID)
	if err != nil {
		return nil, err
	}

	stats := ComputeStatistics(rows)
	return &stats, nil
}

// ComputeStatistics is a pure reduction of a projection. An empty
// projection yields a zero rate, not a division error.
func ComputeStatistics(rows []models.ProjectionRow) models.Statistics {
	stats := models.Statistics{Total: len(rows)}
	for _, row := range rows {
		if row.Entry.Status {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}

// ParseDate accepts a plain calendar date or an RFC 3339 timestamp.
func ParseDate(date string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, models.ErrInvalidDate
}
