package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// DBSystem is the db.system span attribute: postgresql or sqlite
	DBSystem string
	// IncludeVariables puts bound query values in spans; journal rows hold raw gateway answers
	IncludeVariables bool
}

// DBSystemFor maps a database driver name to the OpenTelemetry db.system value
func DBSystemFor(driver string) string {
	if driver == "postgres" {
		return "postgresql"
	}
	return driver
}

// RegisterDBTracing installs the otelgorm plugin on db.
// Nothing is registered when tracing is disabled.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(cfg.DBSystem),
	}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	logger.Info("Database tracing enabled", zap.String("db_system", cfg.DBSystem))
	return nil
}
