package domain

import (
	"context"
)

// AssessmentRepository defines the interface for assessment persistence
type AssessmentRepository interface {
	SaveAssessment(ctx context.Context, assessment *Assessment) error
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	ListAssessments(ctx context.Context, limit int) ([]*Assessment, error)
}

// AssessmentCache is a keyed store of pipeline results. Implementations must
// be safe for concurrent use.
type AssessmentCache interface {
	Get(ctx context.Context, key string) (*Assessment, bool)
	Set(ctx context.Context, key string, assessment *Assessment) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetExternalAPIConfig() *ExternalAPIConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
