package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrMissingClientName indicates that a status check was submitted without a client name.
	ErrMissingClientName = errors.New("status: client name required")
	errMissingDatabase   = errors.New("status: database handle is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a dotted code naming the failed operation and reason.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "status.service.new"
	opRecordCheck  = "status.record_check"
	opListChecks   = "status.list_checks"
	fieldClientKey = "client_name"

	reasonMissingDatabase   = "missing_database"
	reasonInvalidClientName = "invalid_client_name"
	reasonInsertFailed      = "insert_failed"
	reasonQueryFailed       = "query_failed"

	listLimit = 1000
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Check records that a client reached the API.
type Check struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	ClientName string    `gorm:"column:client_name;size:190;not null" json:"client_name"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

// TableName provides the explicit table binding for GORM.
func (Check) TableName() string {
	return "status_checks"
}

type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service stores and lists status checks.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Record stores a new status check for the client.
func (s *Service) Record(ctx context.Context, clientName string) (Check, error) {
	name := strings.TrimSpace(clientName)
	if name == "" {
		return Check{}, newServiceError(opRecordCheck, reasonInvalidClientName, ErrMissingClientName)
	}
	if s.db == nil {
		s.logError(opRecordCheck, reasonMissingDatabase, errMissingDatabase)
		return Check{}, newServiceError(opRecordCheck, reasonMissingDatabase, errMissingDatabase)
	}
	check := Check{
		ID:         uuid.NewString(),
		ClientName: name,
		Timestamp:  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&check).Error; err != nil {
		s.logError(opRecordCheck, reasonInsertFailed, err, zap.String(fieldClientKey, name))
		return Check{}, newServiceError(opRecordCheck, reasonInsertFailed, err)
	}
	return check, nil
}

// List returns stored status checks in insertion order.
func (s *Service) List(ctx context.Context) ([]Check, error) {
	if s.db == nil {
		s.logError(opListChecks, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opListChecks, reasonMissingDatabase, errMissingDatabase)
	}
	checks := make([]Check, 0)
	if err := s.db.WithContext(ctx).Order("timestamp ASC").Limit(listLimit).Find(&checks).Error; err != nil {
		s.logError(opListChecks, reasonQueryFailed, err)
		return nil, newServiceError(opListChecks, reasonQueryFailed, err)
	}
	return checks, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("status service error", attrs...)
}
