package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds database connection configuration, consumed by gorm's
// postgres driver.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DefaultConfig returns a default database configuration for local
// development.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "zkcreds",
		Password: "zkcreds",
		Database: "zkcreds",
		SSLMode:  "disable",
	}
}

// DSN returns the database connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Store wraps a *gorm.DB with the CRUD surface the issuer-side HTTP
// handlers need.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New opens a connection and runs AutoMigrate for the holder, credential,
// and credential_instance tables.
func New(config *Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&Holder{}, &Credential{}, &CredentialInstance{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Holders ---

// CreateHolder inserts a new holder, assigning a fresh id.
func (s *Store) CreateHolder(ctx context.Context, firstName, lastName string) (*Holder, error) {
	h := &Holder{
		ID:        uuid.New().String(),
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return nil, fmt.Errorf("create holder: %w", err)
	}
	return h, nil
}

// DeleteHolder removes a holder; credentials and their instances cascade.
func (s *Store) DeleteHolder(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Holder{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete holder: %w", err)
	}
	return nil
}

// ListHolders returns every holder.
func (s *Store) ListHolders(ctx context.Context) ([]Holder, error) {
	var holders []Holder
	if err := s.db.WithContext(ctx).Order("created_at").Find(&holders).Error; err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	return holders, nil
}

// --- Credentials ---

// CreateCredential inserts a new credential template under holderID.
func (s *Store) CreateCredential(ctx context.Context, holderID string, schemaID uint32, details string) (*Credential, error) {
	c := &Credential{
		ID:        uuid.New().String(),
		HolderID:  holderID,
		SchemaID:  schemaID,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return c, nil
}

// DeleteCredential removes a credential; its instances cascade.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Credential{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// GetCredential fetches a single credential by id.
func (s *Store) GetCredential(ctx context.Context, id string) (*Credential, error) {
	var c Credential
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}

// ListCredentials returns every credential belonging to holderID.
func (s *Store) ListCredentials(ctx context.Context, holderID string) ([]Credential, error) {
	var creds []Credential
	if err := s.db.WithContext(ctx).Where("holder_id = ?", holderID).Order("created_at").Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// --- Credential instances ---

// InsertInstances inserts freshly materialised instances in one batch.
func (s *Store) InsertInstances(ctx context.Context, instances []CredentialInstance) error {
	if len(instances) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&instances).Error; err != nil {
		return fmt.Errorf("insert instances: %w", err)
	}
	return nil
}

// DeleteInstances removes instances whose id is in ids AND whose
// credential_id is credentialID — the double filter prevents a caller
// from deleting another credential's instance by guessing its id.
func (s *Store) DeleteInstances(ctx context.Context, credentialID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).
		Where("credential_id = ?", credentialID).
		Delete(&CredentialInstance{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("delete instances: %w", err)
	}
	return nil
}

// ListInstances returns every instance of credentialID.
func (s *Store) ListInstances(ctx context.Context, credentialID string) ([]CredentialInstance, error) {
	var instances []CredentialInstance
	if err := s.db.WithContext(ctx).Where("credential_id = ?", credentialID).Order("created_at").Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return instances, nil
}

// ListAllInstanceHashes returns every credential instance hash across the
// whole issuer database — the db_set side of the synchroniser's set
// difference against the registry's committed set.
func (s *Store) ListAllInstanceHashes(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := s.db.WithContext(ctx).Model(&CredentialInstance{}).Pluck("hash", &hashes).Error; err != nil {
		return nil, fmt.Errorf("list all instance hashes: %w", err)
	}
	return hashes, nil
}
