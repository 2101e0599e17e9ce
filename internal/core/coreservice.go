package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/classifier"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/database"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
)

// CoreService is the application context shared by every handler. It is not
// modified after construction.
type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	classifier      *classifier.Classifier
	runtimeLoaded   bool
}

// NewCoreService wires already constructed collaborators. A nil classifier means
// the model is unavailable and predictions are refused.
func NewCoreService(config *ServiceConfig, databaseService database.DatabaseService, model *classifier.Classifier) *CoreService {
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		classifier:      model,
	}
}

// Bootstrap builds the CoreService from configuration: feedback directories,
// database schema and the classification model. Only database failures are fatal.
func Bootstrap(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	if err := EnsureFeedbackDirectories(config.FeedbackDir); err != nil {
		return nil, err
	}

	databaseService, err := getDatabaseService(ctx, config)
	if err != nil {
		return nil, err
	}

	service := NewCoreService(config, databaseService, nil)
	service.classifier, service.runtimeLoaded = loadModel(config.Model)
	return service, nil
}

func getDatabaseService(ctx context.Context, config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(ctx,
		config.Database.Type,
		config.Database.DataSourceName(),
		config.Database.MaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

// loadModel returns a nil classifier when the runtime or model cannot be loaded.
// The second value reports whether the ONNX runtime needs to be torn down.
func loadModel(model Model) (*classifier.Classifier, bool) {
	if err := classifier.InitializeRuntime(model.OnnxLibraryPath); err != nil {
		slog.Error("model unavailable, predictions disabled", "error", err)
		return nil, false
	}

	loaded, err := classifier.LoadClassifier(model.Path)
	if err != nil {
		slog.Error("model unavailable, predictions disabled", "path", model.Path, "error", err)
		return nil, true
	}
	slog.Info("model loaded successfully", "path", model.Path)
	return loaded, true
}

// EnsureFeedbackDirectories creates one directory per label below root.
func EnsureFeedbackDirectories(root string) error {
	for _, label := range common.Labels() {
		dir := filepath.Join(root, label.String())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create feedback directory %s: %w", dir, err)
		}
	}
	return nil
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Database() database.DatabaseService {
	return service.databaseService
}

// Classifier returns nil when no model is loaded.
func (service *CoreService) Classifier() *classifier.Classifier {
	return service.classifier
}

func (service *CoreService) ModelLoaded() bool {
	return service.classifier != nil
}

func (service *CoreService) Close() error {
	var errs []error
	if err := service.classifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close classifier: %w", err))
	}
	if service.runtimeLoaded {
		classifier.DestroyRuntime()
	}
	if service.databaseService != nil {
		if err := service.databaseService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
