package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Area groups tasks by physical location in the clinic.
type Area struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Code        string             `json:"code" bson:"code"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
}

// Task is a catalog task definition. The catalog is managed elsewhere;
// this service only reads it.
type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID      string             `json:"taskId" bson:"taskId"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	AreaID      primitive.ObjectID `json:"area" bson:"area"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	Order       int                `json:"order" bson:"order"`
}

// CatalogTask is a task joined with its area, as returned by the catalog.
type CatalogTask struct {
	Task Task
	Area Area
}
