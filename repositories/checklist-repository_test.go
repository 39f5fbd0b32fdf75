package repositories

import (
	"testing"
	"time"

	"clinic-checklist/checklist-service/models"
)

func TestSetFields_StatusTrueStampsCompletion(t *testing.T) {
	completedAt := time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)
	status := true
	staff := "Alice"

	set := setFields(models.EntryWrite{
		Status:      &status,
		StaffName:   &staff,
		CompletedAt: &completedAt,
		CompletedBy: "u1",
	})

	if set["status"] != true {
		t.Fatalf("expected status true, got %v", set["status"])
	}
	if got, ok := set["completedAt"].(*time.Time); !ok || got == nil || !got.Equal(completedAt) {
		t.Fatalf("expected completedAt %v, got %v", completedAt, set["completedAt"])
	}
	if set["completedBy"] != "u1" {
		t.Fatalf("expected completedBy u1, got %v", set["completedBy"])
	}
	if set["staffName"] != "Alice" {
		t.Fatalf("expected staffName Alice, got %v", set["staffName"])
	}
}

func TestSetFields_StatusFalseClearsCompletion(t *testing.T) {
	status := false
	set := setFields(models.EntryWrite{Status: &status, CompletedBy: "u1"})

	if set["status"] != false {
		t.Fatalf("expected status false, got %v", set["status"])
	}
	got, present := set["completedAt"]
	if !present {
		t.Fatalf("a status write must rewrite completedAt")
	}
	if ptr, ok := got.(*time.Time); !ok || ptr != nil {
		t.Fatalf("expected completedAt cleared to nil, got %v", got)
	}
}

func TestSetFields_NilFieldsAreLeftUntouched(t *testing.T) {
	staff := "Bob"
	set := setFields(models.EntryWrite{StaffName: &staff})

	if _, present := set["status"]; present {
		t.Fatalf("a staff-only patch must not touch status")
	}
	if _, present := set["completedAt"]; present {
		t.Fatalf("a staff-only patch must not touch completedAt")
	}
	if set["staffName"] != "Bob" {
		t.Fatalf("expected staffName Bob, got %v", set["staffName"])
	}
}

func TestStartOfDay_CollapsesTimesOntoOneKey(t *testing.T) {
	morning := time.Date(2024, 1, 5, 8, 15, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC)

	if !models.StartOfDay(morning).Equal(models.StartOfDay(evening)) {
		t.Fatalf("writes within one day must collide on the same key")
	}
	if got := models.StartOfDay(morning); got.Hour() != 0 || got.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}
