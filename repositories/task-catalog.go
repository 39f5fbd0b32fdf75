package repositories

import (
	"context"
	"errors"
	"fmt"

	"clinic-checklist/checklist-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskCatalogRepo reads the task and area catalog. The catalog is
// managed by the admin CRUD service; this repo never writes it.
type TaskCatalogRepo struct {
	tasks *mongo.Collection
	areas *mongo.Collection
}

func NewTaskCatalogRepo(tasks, areas *mongo.Collection) *TaskCatalogRepo {
	return &TaskCatalogRepo{tasks: tasks, areas: areas}
}

// ListActiveTasks returns active tasks joined with their areas, ordered
// by (area, task order, task code). An empty areaID returns all areas;
// an areaID that matches nothing returns an empty list.
func (r *TaskCatalogRepo) ListActiveTasks(ctx context.Context, areaID string) ([]models.CatalogTask, error) {
	filter := bson.M{"isActive": true}
	if areaID != "" {
		areaObjectID, err := primitive.ObjectIDFromHex(areaID)
		if err != nil {
			// Unknown area narrows the scope to nothing rather than failing.
			return nil, nil
		}
		filter["area"] = areaObjectID
	}

	sort := bson.D{{Key: "area", Value: 1}, {Key: "order", Value: 1}, {Key: "taskId", Value: 1}}
	cursor, err := r.tasks.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	for cursor.Next(ctx) {
		var task models.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, fmt.Errorf("failed to decode task: %v", err)
		}
		tasks = append(tasks, task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	areasByID, err := r.loadAreas(ctx)
	if err != nil {
		return nil, err
	}

	joined := make([]models.CatalogTask, 0, len(tasks))
	for _, task := range tasks {
		joined = append(joined, models.CatalogTask{
			Task: task,
			Area: areasByID[task.AreaID],
		})
	}

	return joined, nil
}

// GetArea looks up one area by id. Returns nil without error when the
// id is unknown or malformed.
func (r *TaskCatalogRepo) GetArea(ctx context.Context, areaID string) (*models.Area, error) {
	areaObjectID, err := primitive.ObjectIDFromHex(areaID)
	if err != nil {
		return nil, nil
	}

	var area models.Area
	err = r.areas.FindOne(ctx, bson.M{"_id": areaObjectID}).Decode(&area)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve area: %v", err)
	}

	return &area, nil
}

func (r *TaskCatalogRepo) loadAreas(ctx context.Context) (map[primitive.ObjectID]models.Area, error) {
	cursor, err := r.areas.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve areas: %v", err)
	}
	defer cursor.Close(ctx)

	areasByID := make(map[primitive.ObjectID]models.Area)
	for cursor.Next(ctx) {
		var area models.Area
		if err := cursor.Decode(&area); err != nil {
			return nil, fmt.Errorf("failed to decode area: %v", err)
		}
		areasByID[area.ID] = area
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return areasByID, nil
}
