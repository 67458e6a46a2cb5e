package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestBaseModel_BeforeCreate_GeneratesID(t *testing.T) {
	base := &BaseModel{}

	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.ID == uuid.Nil {
		t.Error("expected a generated id")
	}
}

func TestBaseModel_BeforeCreate_PreservesID(t *testing.T) {
	id := uuid.New()
	base := &BaseModel{ID: id}

	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.ID != id {
		t.Error("expected preset id preserved")
	}
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Project{}.TableName():            "projects",
		ProjectMembership{}.TableName():  "project_memberships",
		Rfi{}.TableName():                "rfis",
		RfiReply{}.TableName():           "rfi_replies",
		RfiGroupAssignment{}.TableName(): "rfi_group_assignments",
		Drawing{}.TableName():            "drawings",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("expected table %q, got %q", want, got)
		}
	}
}
