package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nutrilens/backend/internal/config"
	"github.com/nutrilens/backend/internal/middleware"
	"github.com/nutrilens/backend/internal/models"
	"github.com/nutrilens/backend/internal/services"
	"github.com/nutrilens/backend/pkg/response"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalyzer struct {
	result string
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, image []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.result, nil
}

type stubVerifier struct{}

// Verify treats the token itself as "<userID>|<email>" so each test can
// choose its caller without real signatures.
func (stubVerifier) Verify(token string) (services.Identity, error) {
	userID, email, _ := strings.Cut(token, "|")
	return services.Identity{UserID: userID, Email: email}, nil
}

// testApp wires a complete router against an in-memory database.
type testApp struct {
	router *gin.Engine
	store  *services.UsageStore
	quota  *services.QuotaService
}

func newTestApp(t *testing.T, dailyLimit int, adminUserID string, analyzer services.Analyzer) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.UsageRecord{}, &models.AnalysisRecord{}, &models.SystemLog{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Quota.DailyLimit = dailyLimit
	cfg.Auth.AdminUserID = adminUserID

	store := services.NewUsageStore(db)
	quota := services.NewQuotaService(store, cfg)
	records := services.NewAnalysisLogService(db)
	pipeline := services.NewAnalysisService(quota, records, analyzer, &cfg.Upload)
	reports := services.NewReportService()

	analysisHandler := NewAnalysisHandler(pipeline, records, reports, cfg.Quota.DailyLimit)
	userHandler := NewUserHandler(store, quota, records)
	adminHandler := NewAdminHandler(store, records)

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.AuthRequired(stubVerifier{}, quota))
	{
		api.POST("/analyze-image", analysisHandler.AnalyzeImage)
		api.GET("/analyses/:id/report", analysisHandler.DownloadReport)
		api.GET("/user/profile", userHandler.GetProfile)
		api.GET("/user/history", userHandler.GetHistory)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/stats", adminHandler.GetStats)
		}
	}

	return &testApp{router: router, store: store, quota: quota}
}

// multipartImage builds a multipart body with one "file" part of the given
// content type.
func multipartImage(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="file"; filename="meal.jpg"`}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write multipart part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return body, w.FormDataContentType()
}

func (a *testApp) do(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) analyze(t *testing.T, token, imageType string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartImage(t, imageType, []byte("fake image bytes"))
	return a.do(t, http.MethodPost, "/api/analyze-image", token, body, ct)
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response envelope: %v (body: %s)", err, w.Body.String())
	}
	return resp
}

func dataField(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("data is not an object: %v (data: %s)", err, b)
	}
	return m
}
