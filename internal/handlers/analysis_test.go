package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestAnalyzeImage_Success(t *testing.T) {
	app := newTestApp(t, 3, "", &stubAnalyzer{result: "Calories: 250 kcal"})

	w := app.analyze(t, "user_1|u1@example.com", "image/jpeg")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
	}

	data := dataField(t, parseEnvelope(t, w))
	if data["analysis"] != "Calories: 250 kcal" {
		t.Errorf("analysis = %v", data["analysis"])
	}
	if data["remaining_requests"] != float64(2) {
		t.Errorf("remaining_requests = %v, expected 2", data["remaining_requests"])
	}
	if data["is_admin"] != false {
		t.Errorf("is_admin = %v, expected false", data["is_admin"])
	}
	if data["analysis_id"] == "" {
		t.Error("analysis_id should be set")
	}
}

func TestAnalyzeImage_RequiresAuth(t *testing.T) {
	app := newTestApp(t, 3, "", &stubAnalyzer{result: "ok"})

	body, ct := multipartImage(t, "image/jpeg", []byte("img"))
	w := app.do(t, http.MethodPost, "/api/analyze-image", "", body, ct)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAnalyzeImage_MissingFile(t *testing.T) {
	app := newTestApp(t, 3, "", &stubAnalyzer{result: "ok"})

	w := app.do(t, http.MethodPost, "/api/analyze-image", "user_1|u1@example.com", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected %d", w.Code, http.StatusBadRequest)
	}
}

func TestAnalyzeImage_RejectedType(t *testing.T) {
	app := newTestApp(t, 3, "", &stubAnalyzer{result: "ok"})

	w := app.analyze(t, "user_1|u1@example.com", "image/gif")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected %d", w.Code, http.StatusBadRequest)
	}
	resp := parseEnvelope(t, w)
	if !strings.Contains(resp.Message, "not allowed") {
		t.Errorf("message = %q, expected a type rejection", resp.Message)
	}
}

func TestAnalyzeImage_QuotaExhausted(t *testing.T) {
	app := newTestApp(t, 2, "", &stubAnalyzer{result: "ok"})
	token := "user_1|u1@example.com"

	for i := 0; i < 2; i++ {
		if w := app.analyze(t, token, "image/jpeg"); w.Code != http.StatusOK {
			t.Fatalf("request #%d status = %d (body: %s)", i+1, w.Code, w.Body.String())
		}
	}

	w := app.analyze(t, token, "image/jpeg")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, expected %d", w.Code, http.StatusTooManyRequests)
	}
	resp := parseEnvelope(t, w)
	if !strings.Contains(resp.Message, "Daily limit of 2 requests exceeded") {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestAnalyzeImage_ModelFailure(t *testing.T) {
	app := newTestApp(t, 3, "", &stubAnalyzer{err: errors.New("model unavailable")})

	w := app.analyze(t, "user_1|u1@example.com", "image/jpeg")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected %d", w.Code, http.StatusInternalServerError)
	}
	resp := parseEnvelope(t, w)
	if strings.Contains(resp.Message, "model unavailable") {
		t.Error("internal failure detail must not leak to the caller")
	}
}

func TestAnalyzeImage_AdminUnlimited(t *testing.T) {
	app := newTestApp(t, 1, "admin_1", &stubAnalyzer{result: "ok"})
	token := "admin_1|admin@example.com"

	for i := 0; i < 3; i++ {
		w := app.analyze(t, token, "image/jpeg")
		if w.Code != http.StatusOK {
			t.Fatalf("admin request #%d status = %d", i+1, w.Code)
		}
		data := dataField(t, parseEnvelope(t, w))
		if data["remaining_requests"] != "Unlimited" {
			t.Errorf("remaining_requests = %v, expected \"Unlimited\"", data["remaining_requests"])
		}
		if data["is_admin"] != true {
			t.Errorf("is_admin = %v, expected true", data["is_admin"])
		}
	}
}

func TestDownloadReport_OwnerGetsPDF(t *testing.T) {
	app := newTestApp(t, 3, "", &stubAnalyzer{result: "Calories: 250 kcal"})
	token := "user_1|u1@example.com"

	w := app.analyze(t, token, "image/jpeg")
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", w.Code)
	}
	analysisID := dataField(t, parseEnvelope(t, w))["analysis_id"].(string)

	w = app.do(t, http.MethodGet, "/api/analyses/"+analysisID+"/report", token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d (body: %s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, expected application/pdf", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "nutrition-report-") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Error("body is not a PDF")
	}
}

func TestDownloadReport_NonOwnerGets404(t *testing.T) {
	app := newTestApp(t, 3, "admin_1", &stubAnalyzer{result: "ok"})

	w := app.analyze(t, "user_1|u1@example.com", "image/jpeg")
	analysisID := dataField(t, parseEnvelope(t, w))["analysis_id"].(string)

	// Another user sees the same response as for a missing record.
	w = app.do(t, http.MethodGet, "/api/analyses/"+analysisID+"/report", "user_2|u2@example.com", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("non-owner status = %d, expected %d", w.Code, http.StatusNotFound)
	}

	// The admin can fetch anyone's report.
	w = app.do(t, http.MethodGet, "/api/analyses/"+analysisID+"/report", "admin_1|admin@example.com", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("admin status = %d, expected %d", w.Code, http.StatusOK)
	}
}

func TestDownloadReport_UnknownID(t *testing.T) {
	app := newTestApp(t, 3, "", &stubAnalyzer{result: "ok"})

	w := app.do(t, http.MethodGet, "/api/analyses/does-not-exist/report", "user_1|u1@example.com", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected %d", w.Code, http.StatusNotFound)
	}
}
