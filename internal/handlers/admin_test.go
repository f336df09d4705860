package handlers

import (
	"net/http"
	"testing"
)

func TestGetStats_RequiresAdmin(t *testing.T) {
	app := newTestApp(t, 3, "admin_1", &stubAnalyzer{result: "ok"})

	w := app.do(t, http.MethodGet, "/api/admin/stats", "user_1|u1@example.com", nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, expected %d", w.Code, http.StatusForbidden)
	}
}

func TestGetStats(t *testing.T) {
	app := newTestApp(t, 10, "admin_1", &stubAnalyzer{result: "ok"})

	for i := 0; i < 3; i++ {
		if w := app.analyze(t, "user_1|u1@example.com", "image/jpeg"); w.Code != http.StatusOK {
			t.Fatalf("user_1 analyze #%d status = %d", i+1, w.Code)
		}
	}
	if w := app.analyze(t, "user_2|u2@example.com", "image/jpeg"); w.Code != http.StatusOK {
		t.Fatalf("user_2 analyze status = %d", w.Code)
	}
	// The admin's own requests do not show up as tracked users.
	if w := app.analyze(t, "admin_1|admin@example.com", "image/jpeg"); w.Code != http.StatusOK {
		t.Fatalf("admin analyze status = %d", w.Code)
	}

	w := app.do(t, http.MethodGet, "/api/admin/stats", "admin_1|admin@example.com", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", w.Code, w.Body.String())
	}

	data := dataField(t, parseEnvelope(t, w))
	if data["total_users"] != float64(2) {
		t.Errorf("total_users = %v, expected 2", data["total_users"])
	}
	if data["total_analyses"] != float64(5) {
		t.Errorf("total_analyses = %v, expected 5", data["total_analyses"])
	}
	if data["today_analyses"] != float64(5) {
		t.Errorf("today_analyses = %v, expected 5", data["today_analyses"])
	}

	top, ok := data["top_users"].([]interface{})
	if !ok {
		t.Fatalf("top_users is not a list: %T", data["top_users"])
	}
	if len(top) != 2 {
		t.Fatalf("top_users has %d rows, expected 2", len(top))
	}
	heaviest, _ := top[0].(map[string]interface{})
	if heaviest["email"] != "u1@example.com" {
		t.Errorf("top_users[0].email = %v, expected u1@example.com", heaviest["email"])
	}
	if heaviest["requests"] != float64(3) {
		t.Errorf("top_users[0].requests = %v, expected 3", heaviest["requests"])
	}
}
