package repositories

import (
	"context"
	"fmt"
	"time"

	"clinic-checklist/checklist-service/logging"
	"clinic-checklist/checklist-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChecklistRepo owns all reads and writes of checklist facts. The
// (task, date) uniqueness invariant lives in the collection's compound
// unique index; every write goes through an atomic upsert, so no
// in-process locking is needed.
type ChecklistRepo struct {
	entries *mongo.Collection
}

func NewChecklistRepo(entries *mongo.Collection) *ChecklistRepo {
	return &ChecklistRepo{entries: entries}
}

// EnsureIndexes creates the compound unique index the upsert path
// relies on. Safe to call on every startup.
func (r *ChecklistRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.entries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "task", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create (task, date) index: %v", err)
	}
	return nil
}

// FindByDate returns every stored fact for the calendar day of the
// given date.
func (r *ChecklistRepo) FindByDate(ctx context.Context, date time.Time) ([]models.ChecklistEntry, error) {
	startOfDay := models.StartOfDay(date)
	endOfDay := startOfDay.Add(24 * time.Hour)

	cursor, err := r.entries.Find(ctx, bson.M{
		"date": bson.M{"$gte": startOfDay, "$lt": endOfDay},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checklist entries: %v", err)
	}
	defer cursor.Close(ctx)

	var entries []models.ChecklistEntry
	for cursor.Next(ctx) {
		var entry models.ChecklistEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode checklist entry: %v", err)
		}
		entries = append(entries, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return entries, nil
}

// Upsert atomically creates or updates the single fact for the write's
// (task, date) key and returns the stored document.
func (r *ChecklistRepo) Upsert(ctx context.Context, date time.Time, write models.EntryWrite) (*models.ChecklistEntry, error) {
	startOfDay := models.StartOfDay(date)
	filter := bson.M{"task": write.TaskID, "date": startOfDay}

	update := bson.M{
		"$set":         setFields(write),
		"$setOnInsert": bson.M{"task": write.TaskID, "date": startOfDay},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var entry models.ChecklistEntry
	if err := r.entries.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to upsert checklist entry: %v", err)
	}

	return &entry, nil
}

// BulkUpsert applies a batch of independent upserts for one day. The
// batch runs unordered: a failing item does not stop the rest, so a
// partial failure still persists every other entry. Returns the number
// of entries written.
func (r *ChecklistRepo) BulkUpsert(ctx context.Context, date time.Time, writes []models.EntryWrite) (int, error) {
	if len(writes) == 0 {
		return 0, nil
	}

	startOfDay := models.StartOfDay(date)
	operations := make([]mongo.WriteModel, 0, len(writes))
	for _, write := range writes {
		operations = append(operations, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"task": write.TaskID, "date": startOfDay}).
			SetUpdate(bson.M{
				"$set":         setFields(write),
				"$setOnInsert": bson.M{"task": write.TaskID, "date": startOfDay},
			}).
			SetUpsert(true))
	}

	result, err := r.entries.BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false))
	saved := 0
	if result != nil {
		saved = int(result.MatchedCount + result.UpsertedCount)
	}
	if err != nil {
		logging.Logger.Errorf("Event ID: BULK_UPSERT_PARTIAL_FAILURE, Description: Bulk save wrote %d of %d entries: %v", saved, len(writes), err)
		return saved, fmt.Errorf("failed to save checklist entries: %v", err)
	}

	return saved, nil
}

// setFields builds the $set document for a fact write. Only fields the
// caller resolved are touched; a status write always rewrites the
// completion timestamp (set to now for done, cleared for not done).
func setFields(write models.EntryWrite) bson.M {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if write.Status != nil {
		set["status"] = *write.Status
		set["completedAt"] = write.CompletedAt
		set["completedBy"] = write.CompletedBy
	}
	if write.StaffName != nil {
		set["staffName"] = *write.StaffName
	}
	return set
}
