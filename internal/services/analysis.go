package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nutrilens/backend/internal/config"
	"github.com/nutrilens/backend/pkg/logger"
)

// ImageUpload is the validated-or-not payload of an analysis request.
type ImageUpload struct {
	Data        []byte
	ContentType string
	Size        int64
}

// AnalysisOutcome is what an admitted, completed request returns to the caller.
type AnalysisOutcome struct {
	Analysis          string    `json:"analysis"`
	RemainingRequests Remaining `json:"remaining_requests"`
	AnalysisID        string    `json:"analysis_id"`
	IsAdmin           bool      `json:"is_admin"`
	Timestamp         time.Time `json:"timestamp"`
}

// AnalysisService is the admission pipeline: quota check, payload validation,
// model invocation, record append — in that order, each step terminal on
// failure.
type AnalysisService struct {
	quota    *QuotaService
	records  *AnalysisLogService
	analyzer Analyzer
	upload   *config.UploadConfig
}

func NewAnalysisService(quota *QuotaService, records *AnalysisLogService, analyzer Analyzer, uploadCfg *config.UploadConfig) *AnalysisService {
	return &AnalysisService{
		quota:    quota,
		records:  records,
		analyzer: analyzer,
		upload:   uploadCfg,
	}
}

// HandleRequest runs one analysis request end to end.
//
// The quota check runs first so a caller at the limit never pays for (or
// waits on) the model call. Once admitted, the consumed quota unit stands
// even if the model call later fails; a failed call writes no record.
func (s *AnalysisService) HandleRequest(ctx context.Context, id Identity, upload *ImageUpload) (*AnalysisOutcome, error) {
	decision, err := s.quota.Evaluate(id)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		return nil, fmt.Errorf("%w: daily limit of %d requests reached", ErrQuotaExceeded, s.quota.DailyLimit())
	}

	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	resultText, err := s.analyzer.Analyze(ctx, upload.Data, upload.ContentType)
	if err != nil {
		LogError("Analysis", "Analyze", "vision model call failed", id.UserID, "", "", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	recordID, err := s.records.Append(id.UserID, resultText)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("user_id", id.UserID).
		Str("analysis_id", recordID).
		Msg("analysis recorded")

	return &AnalysisOutcome{
		Analysis:          resultText,
		RemainingRequests: decision.Remaining,
		AnalysisID:        recordID,
		IsAdmin:           decision.Remaining.Unlimited,
		Timestamp:         time.Now(),
	}, nil
}

// validateUpload checks the payload against the configured allow-list and
// size cap. Validation failures are not retryable without a different input.
func (s *AnalysisService) validateUpload(upload *ImageUpload) error {
	if upload == nil || len(upload.Data) == 0 {
		return fmt.Errorf("%w: empty upload", ErrInvalidInput)
	}
	if !s.upload.IsAllowedType(upload.ContentType) {
		return fmt.Errorf("%w: file type %q not allowed, only JPEG and PNG are accepted", ErrInvalidInput, upload.ContentType)
	}
	size := upload.Size
	if size == 0 {
		size = int64(len(upload.Data))
	}
	if size > s.upload.MaxFileSize {
		return fmt.Errorf("%w: file size %d exceeds maximum of %d bytes", ErrInvalidInput, size, s.upload.MaxFileSize)
	}
	return nil
}
