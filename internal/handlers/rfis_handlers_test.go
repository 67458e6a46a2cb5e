package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/contraco/backend/internal/models"
)

type rfiTestEnv struct {
	*testEnv
	owner      *models.User
	ownerToken string
	member     *models.User
	memberTok  string
	project    *models.Project
}

func setupRfiTestEnv(t *testing.T) *rfiTestEnv {
	t.Helper()

	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@example.com", "owner", "password123")
	member, memberTok := createTestUser(t, env.db, "member@example.com", "member", "password123")
	project := createTestProject(t, env.db, owner, "PROJ-042")
	addProjectMember(t, env.db, member, project)

	return &rfiTestEnv{
		testEnv:    env,
		owner:      owner,
		ownerToken: ownerToken,
		member:     member,
		memberTok:  memberTok,
		project:    project,
	}
}

func (e *rfiTestEnv) createRfi(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()

	if _, ok := payload["projectCode"]; !ok {
		payload["projectCode"] = e.project.Code
	}
	resp := performJSONRequest(t, e.app, http.MethodPost, "/api/rfis/", payload, authHeaders(e.ownerToken))
	assertStatus(t, resp, http.StatusCreated)
	return envelopeData(t, decodeJSONMap(t, resp))
}

func TestCreateRfiHandler_UserAssignment(t *testing.T) {
	env := setupRfiTestEnv(t)

	data := env.createRfi(t, map[string]any{
		"title":           "Footing depth",
		"description":     "Confirm depth at gridline C",
		"priority":        "HIGH",
		"assignedToEmail": "member@example.com",
	})

	if data["status"] != "PENDING" {
		t.Errorf("expected PENDING, got %v", data["status"])
	}
	if data["assignedType"] != "USER" {
		t.Errorf("expected USER assignment, got %v", data["assignedType"])
	}
	if data["assignedTo"] != "member@example.com" {
		t.Errorf("expected assignee email, got %v", data["assignedTo"])
	}
	if data["projectCode"] != "PROJ-042" {
		t.Errorf("expected project code, got %v", data["projectCode"])
	}
	createdBy, _ := data["createdBy"].(map[string]any)
	if createdBy["email"] != "owner@example.com" {
		t.Errorf("expected creator projection, got %v", createdBy)
	}
}

func TestCreateRfiHandler_ExactlyOneTarget(t *testing.T) {
	env := setupRfiTestEnv(t)

	// neither target
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/rfis/", map[string]any{
		"projectCode": "PROJ-042",
		"title":       "No target",
		"description": "x",
	}, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusBadRequest)

	// both targets
	seedTestGroup(t, env.testEnv, env.project, env.owner, "dual")
	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/rfis/", map[string]any{
		"projectCode":       "PROJ-042",
		"title":             "Both targets",
		"description":       "x",
		"assignedToEmail":   "member@example.com",
		"assignedGroupName": "dual",
	}, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusBadRequest)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "cannot assign to both user and group")
}

func TestCreateRfiHandler_GroupAssignment(t *testing.T) {
	env := setupRfiTestEnv(t)
	seedTestGroup(t, env.testEnv, env.project, env.owner, "inspectors", env.member)

	data := env.createRfi(t, map[string]any{
		"title":             "Fireproofing spec",
		"description":       "Column wrap thickness",
		"assignedGroupName": "inspectors",
	})

	if data["assignedType"] != "GROUP" {
		t.Errorf("expected GROUP assignment, got %v", data["assignedType"])
	}
	if data["assignedTo"] != "inspectors" {
		t.Errorf("expected group name, got %v", data["assignedTo"])
	}

	var count int64
	env.db.Model(&models.RfiGroupAssignment{}).Count(&count)
	if count != 2 {
		t.Errorf("expected fan-out rows for owner + member, got %d", count)
	}
}

func TestCreateRfiHandler_Forbidden(t *testing.T) {
	env := setupRfiTestEnv(t)
	_, strangerToken := createTestUser(t, env.db, "stranger@example.com", "stranger", "password123")

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/rfis/", map[string]any{
		"projectCode":     "PROJ-042",
		"title":           "Denied",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	}, authHeaders(strangerToken))
	assertStatus(t, resp, http.StatusForbidden)
}

func TestGetRfiHandler(t *testing.T) {
	env := setupRfiTestEnv(t)
	data := env.createRfi(t, map[string]any{
		"title":           "Readable",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})
	id, _ := data["id"].(string)

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/"+id, nil, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusOK)

	_, strangerToken := createTestUser(t, env.db, "stranger@example.com", "stranger", "password123")
	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/"+id, nil, authHeaders(strangerToken))
	assertStatus(t, resp, http.StatusForbidden)
}

func TestUpdateRfiHandler_Patch(t *testing.T) {
	env := setupRfiTestEnv(t)
	data := env.createRfi(t, map[string]any{
		"title":           "Original title",
		"description":     "Original description",
		"assignedToEmail": "member@example.com",
	})
	id, _ := data["id"].(string)

	resp := performJSONRequest(t, env.app, http.MethodPatch, "/api/rfis/"+id, map[string]any{
		"title":    "Patched title",
		"priority": "LOW",
	}, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusOK)

	patched := envelopeData(t, decodeJSONMap(t, resp))
	if patched["title"] != "Patched title" {
		t.Errorf("expected patched title, got %v", patched["title"])
	}
	if patched["description"] != "Original description" {
		t.Errorf("expected description retained, got %v", patched["description"])
	}
	if patched["priority"] != "LOW" {
		t.Errorf("expected LOW priority, got %v", patched["priority"])
	}
}

func TestResolveRfiHandler(t *testing.T) {
	env := setupRfiTestEnv(t)
	data := env.createRfi(t, map[string]any{
		"title":           "Resolve me",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})
	id, _ := data["id"].(string)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/rfis/"+id+"/resolve", map[string]any{
		"message": "Resolved per detail 5/S-301",
	}, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusOK)

	resolved := envelopeData(t, decodeJSONMap(t, resp))
	if resolved["status"] != "RESOLVED" {
		t.Errorf("expected RESOLVED, got %v", resolved["status"])
	}
	resolvedBy, _ := resolved["resolvedBy"].(map[string]any)
	if resolvedBy["email"] != "member@example.com" {
		t.Errorf("expected resolver projection, got %v", resolvedBy)
	}

	// resolving again conflicts
	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/rfis/"+id+"/resolve", map[string]any{
		"message": "again",
	}, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusConflict)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "RFI is already resolved")
}

func TestReplyRfiHandler(t *testing.T) {
	env := setupRfiTestEnv(t)
	data := env.createRfi(t, map[string]any{
		"title":           "Discussion",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})
	id, _ := data["id"].(string)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/rfis/"+id+"/replies", map[string]any{
		"message": "Checking with the structural engineer",
	}, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusCreated)

	replied := envelopeData(t, decodeJSONMap(t, resp))
	replies, _ := replied["replies"].([]any)
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	if replied["status"] != "PENDING" {
		t.Error("a reply must not change the status")
	}
}

func TestDeleteRfiHandler_CreatorOnly(t *testing.T) {
	env := setupRfiTestEnv(t)
	data := env.createRfi(t, map[string]any{
		"title":           "Delete me",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})
	id, _ := data["id"].(string)

	resp := performJSONRequest(t, env.app, http.MethodDelete, "/api/rfis/"+id, nil, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusForbidden)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "only the creator can delete this RFI")

	resp = performJSONRequest(t, env.app, http.MethodDelete, "/api/rfis/"+id, nil, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusOK)

	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/"+id, nil, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusNotFound)
}

func TestProjectRfisHandler_StatusFilter(t *testing.T) {
	env := setupRfiTestEnv(t)
	first := env.createRfi(t, map[string]any{
		"title":           "One",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})
	env.createRfi(t, map[string]any{
		"title":           "Two",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})

	id, _ := first["id"].(string)
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/rfis/"+id+"/resolve", map[string]any{
		"message": "done",
	}, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusOK)

	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/projects/PROJ-042/rfis?status=PENDING", nil, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	if got := envelopeList(t, body); len(got) != 1 {
		t.Errorf("expected 1 pending RFI, got %d", len(got))
	}

	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/projects/PROJ-042/rfis?status=BOGUS", nil, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestAssignedRfisHandler(t *testing.T) {
	env := setupRfiTestEnv(t)
	env.createRfi(t, map[string]any{
		"title":           "Direct",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})
	seedTestGroup(t, env.testEnv, env.project, env.owner, "crew", env.member)
	env.createRfi(t, map[string]any{
		"title":             "Via group",
		"description":       "x",
		"assignedGroupName": "crew",
	})

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/assigned", nil, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	if got := envelopeList(t, body); len(got) != 2 {
		t.Errorf("expected direct + group RFIs, got %d", len(got))
	}

	pagination, _ := body["pagination"].(map[string]any)
	if total, _ := pagination["total"].(float64); total != 2 {
		t.Errorf("expected total 2, got %v", pagination["total"])
	}
}

func TestCreatedRfisHandler(t *testing.T) {
	env := setupRfiTestEnv(t)
	env.createRfi(t, map[string]any{
		"title":           "Mine",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/created", nil, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusOK)
	if got := envelopeList(t, decodeJSONMap(t, resp)); len(got) != 1 {
		t.Errorf("expected 1 created RFI, got %d", len(got))
	}

	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/created", nil, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusOK)
	if got := envelopeList(t, decodeJSONMap(t, resp)); len(got) != 0 {
		t.Errorf("expected no created RFIs for member, got %d", len(got))
	}
}

func TestRelatedRfisHandler_Deduplicates(t *testing.T) {
	env := setupRfiTestEnv(t)
	// member is project member AND direct assignee of the same RFI
	env.createRfi(t, map[string]any{
		"title":           "Shared",
		"description":     "x",
		"assignedToEmail": "member@example.com",
	})

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/related", nil, authHeaders(env.memberTok))
	assertStatus(t, resp, http.StatusOK)
	if got := envelopeList(t, decodeJSONMap(t, resp)); len(got) != 1 {
		t.Errorf("expected 1 deduplicated RFI, got %d", len(got))
	}
}

func TestOverdueRfisHandler(t *testing.T) {
	env := setupRfiTestEnv(t)
	past := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	future := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)

	env.createRfi(t, map[string]any{
		"title":           "Late",
		"description":     "x",
		"dueDate":         past,
		"assignedToEmail": "member@example.com",
	})
	env.createRfi(t, map[string]any{
		"title":           "On time",
		"description":     "x",
		"dueDate":         future,
		"assignedToEmail": "member@example.com",
	})

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/overdue?projectCode=PROJ-042", nil, authHeaders(env.ownerToken))
	assertStatus(t, resp, http.StatusOK)

	rfis := envelopeList(t, decodeJSONMap(t, resp))
	if len(rfis) != 1 {
		t.Fatalf("expected 1 overdue RFI, got %d", len(rfis))
	}
	first, _ := rfis[0].(map[string]any)
	if first["title"] != "Late" {
		t.Errorf("expected the late RFI, got %v", first["title"])
	}
}

func TestRfiRoutes_RequireAuth(t *testing.T) {
	env := setupRfiTestEnv(t)

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/rfis/assigned", nil, nil)
	assertStatus(t, resp, http.StatusUnauthorized)
}
