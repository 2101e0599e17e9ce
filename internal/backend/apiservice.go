package backend

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/charts"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/classifier"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	APIPrefix      = "/api"
	imageFormField = "image"
)

type APIService struct {
	coreService *core.CoreService
	metrics     *Metrics
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type predictResponse struct {
	Prediction common.Label `json:"prediction"`
	Confidence float64      `json:"confidence"`
	// LogID is null when the request log could not be written.
	LogID *int64 `json:"log_id"`
}

type readinessResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	ModelLoaded bool   `json:"model_loaded"`
}

// feedbackForm fields are checked for presence separately. A label that is
// sent but empty is invalid rather than missing.
type feedbackForm struct {
	Label string `form:"label" validate:"required,label"`
	LogID string `form:"log_id"`
}

func NewAPIService(coreService *core.CoreService, metrics *Metrics) *APIService {
	return &APIService{
		coreService: coreService,
		metrics:     metrics,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.Use(s.metrics.Middleware())

	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})
	e.GET("/ready", s.readinessHandler)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	api := e.Group(APIPrefix)
	api.POST("/predict", s.predictHandler)
	api.POST("/feedback", s.feedbackHandler)
	api.GET("/logs", s.logsHandler)
	api.GET("/stats/predictions", s.predictionStatsHandler)
	api.GET("/stats/feedback", s.feedbackStatsHandler)
	api.GET("/charts/loss", s.lossChartHandler)
	api.GET("/charts/confusion-matrix", s.confusionMatrixHandler)
}

// readinessHandler reports 503 until the database answers a ping.
func (s *APIService) readinessHandler(ctx echo.Context) error {
	if err := s.coreService.Database().Ping(ctx.Request().Context()); err != nil {
		slog.Error("readinessHandler: database ping failed", "status", http.StatusServiceUnavailable, "error", err)
		return respondError(ctx, http.StatusServiceUnavailable, "Database unavailable")
	}
	return ctx.JSON(http.StatusOK, readinessResponse{
		Status:      "ready",
		Database:    s.coreService.Config().Database.Type,
		ModelLoaded: s.coreService.ModelLoaded(),
	})
}

func respondError(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, errorResponse{Error: message})
}

const (
	msgNoImageFile    = "No image file provided"
	msgNoSelectedFile = "No selected file"
)

// uploadedImage returns the "image" part, or the client-facing reason it is
// unusable. A part sent without a filename is parsed as a plain form value.
func uploadedImage(ctx echo.Context) (*multipart.FileHeader, string) {
	file, err := ctx.FormFile(imageFormField)
	if err == nil {
		if file.Filename == "" {
			return nil, msgNoSelectedFile
		}
		return file, ""
	}
	if errors.Is(err, http.ErrMissingFile) {
		if form := ctx.Request().MultipartForm; form != nil {
			if _, ok := form.Value[imageFormField]; ok {
				return nil, msgNoSelectedFile
			}
		}
	}
	return nil, msgNoImageFile
}

// hasFormValue reports whether the form carries field, even with an empty value.
func hasFormValue(ctx echo.Context, field string) bool {
	params, err := ctx.FormParams()
	if err != nil {
		return false
	}
	_, ok := params[field]
	return ok
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}

func (s *APIService) predictHandler(ctx echo.Context) error {
	file, reason := uploadedImage(ctx)
	if file == nil {
		slog.Warn("predictHandler: rejected upload", "status", http.StatusBadRequest, "reason", reason)
		return respondError(ctx, http.StatusBadRequest, reason)
	}

	model := s.coreService.Classifier()
	if model == nil {
		slog.Error("predictHandler: model not loaded", "status", http.StatusInternalServerError)
		return respondError(ctx, http.StatusInternalServerError, "Model not loaded")
	}

	reqCtx := ctx.Request().Context()
	db := s.coreService.Database()
	address := ctx.RealIP()

	prediction, err := classifyUpload(model, file)
	if err != nil {
		s.metrics.predictionFailures.Inc()
		if _, logErr := db.InsertRequestLog(reqCtx, address, file.Filename, common.PredictionErrorLabel, 0, false); logErr != nil {
			slog.Error("predictHandler: failed to log failed request",
				"error", logErr, "filename", file.Filename)
		}
		slog.Error("predictHandler: prediction failed",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return respondError(ctx, http.StatusInternalServerError, fmt.Sprintf("Prediction failed: %v", err))
	}
	s.metrics.predictionCount.WithLabelValues(prediction.Label.String()).Inc()

	response := predictResponse{
		Prediction: prediction.Label,
		Confidence: prediction.Confidence,
	}
	logID, err := db.InsertRequestLog(reqCtx, address, file.Filename, prediction.Label.String(), prediction.Confidence, true)
	if err != nil {
		slog.Error("predictHandler: failed to log request", "error", err, "filename", file.Filename)
	} else {
		response.LogID = &logID
	}
	return ctx.JSON(http.StatusOK, response)
}

func classifyUpload(model *classifier.Classifier, file *multipart.FileHeader) (*classifier.Prediction, error) {
	data, err := readUpload(file)
	if err != nil {
		return nil, err
	}
	return model.Predict(data)
}

func (s *APIService) feedbackHandler(ctx echo.Context) error {
	const missingFields = "Missing image file, label or log_id"

	var form feedbackForm
	if err := ctx.Bind(&form); err != nil {
		slog.Warn("feedbackHandler: failed to bind form", "status", http.StatusBadRequest, "error", err)
		return respondError(ctx, http.StatusBadRequest, missingFields)
	}

	file, _ := uploadedImage(ctx)
	if file == nil || !hasFormValue(ctx, "label") || !hasFormValue(ctx, "log_id") {
		slog.Warn("feedbackHandler: missing fields", "status", http.StatusBadRequest)
		return respondError(ctx, http.StatusBadRequest, missingFields)
	}
	if err := ctx.Validate(&form); err != nil {
		slog.Warn("feedbackHandler: invalid label", "status", http.StatusBadRequest, "label", form.Label, "error", err)
		return respondError(ctx, http.StatusBadRequest, "Invalid label")
	}

	logID, err := strconv.ParseInt(form.LogID, 10, 64)
	if err != nil {
		slog.Warn("feedbackHandler: invalid log_id", "status", http.StatusBadRequest, "log_id", form.LogID)
		return respondError(ctx, http.StatusBadRequest, "Invalid log_id")
	}

	data, err := readUpload(file)
	if err != nil {
		slog.Error("feedbackHandler: failed to read image",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return respondError(ctx, http.StatusInternalServerError, "Failed to read uploaded file")
	}

	reqCtx := ctx.Request().Context()
	db := s.coreService.Database()
	encoded := base64.StdEncoding.EncodeToString(data)
	if _, err := db.InsertFeedback(reqCtx, encoded, common.Label(form.Label)); err != nil {
		slog.Error("feedbackHandler: failed to save feedback",
			"status", http.StatusInternalServerError, "error", err, "log_id", logID)
		return respondError(ctx, http.StatusInternalServerError, "Failed to save feedback")
	}
	if entry, err := db.GetRequestLogByID(reqCtx, logID); err != nil {
		slog.Warn("feedbackHandler: failed to look up request log", "error", err, "log_id", logID)
	} else if entry == nil {
		slog.Warn("feedbackHandler: feedback references unknown request log", "log_id", logID)
	}
	if err := db.InvalidateRequestLog(reqCtx, logID); err != nil {
		slog.Error("feedbackHandler: failed to invalidate request log",
			"status", http.StatusInternalServerError, "error", err, "log_id", logID)
		return respondError(ctx, http.StatusInternalServerError, "Failed to update request log")
	}

	return ctx.JSON(http.StatusOK, messageResponse{Message: "Feedback saved successfully"})
}

func (s *APIService) logsHandler(ctx echo.Context) error {
	logs, err := s.coreService.Database().GetRequestLogs(ctx.Request().Context())
	if err != nil {
		slog.Error("logsHandler: failed to fetch request logs", "status", http.StatusInternalServerError, "error", err)
		return respondError(ctx, http.StatusInternalServerError, "Failed to fetch request logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (s *APIService) predictionStatsHandler(ctx echo.Context) error {
	counts, err := s.coreService.Database().GetPredictionCounts(ctx.Request().Context())
	if err != nil {
		slog.Error("predictionStatsHandler: failed to count predictions", "status", http.StatusInternalServerError, "error", err)
		return respondError(ctx, http.StatusInternalServerError, "Failed to fetch prediction statistics")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (s *APIService) feedbackStatsHandler(ctx echo.Context) error {
	records, err := s.coreService.Database().GetFeedbackLogs(ctx.Request().Context())
	if err != nil {
		slog.Error("feedbackStatsHandler: failed to fetch feedback", "status", http.StatusInternalServerError, "error", err)
		return respondError(ctx, http.StatusInternalServerError, "Failed to fetch feedback")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) lossChartHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, charts.LossChart())
}

func (s *APIService) confusionMatrixHandler(ctx echo.Context) error {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return ctx.JSON(http.StatusOK, charts.ConfusionMatrix(rng))
}
