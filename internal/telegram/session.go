package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"
	"gorm.io/gorm"
)

// SessionStorage implements session.Storage over the sessions table the
// persistent client reads on start. Rows use the gotgproto layout, so a
// session stored here is picked up by the client as is.
type SessionStorage struct {
	db *gorm.DB
}

var _ session.Storage = (*SessionStorage)(nil)

// NewSessionStorage creates the storage, migrating the sessions table if needed.
func NewSessionStorage(db *gorm.DB) (*SessionStorage, error) {
	if err := db.AutoMigrate(&storage.Session{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &SessionStorage{db: db}, nil
}

// LoadSession implements session.Storage.
func (s *SessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	var row storage.Session
	err := s.db.WithContext(ctx).Where("version = ?", storage.LatestVersion).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && len(row.Data) == 0) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return row.Data, nil
}

// StoreSession implements session.Storage.
func (s *SessionStorage) StoreSession(ctx context.Context, data []byte) error {
	row := storage.Session{Version: storage.LatestVersion, Data: data}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Import stores data, replacing any session kept so far.
func (s *SessionStorage) Import(ctx context.Context, data *session.Data) error {
	if data == nil {
		return fmt.Errorf("session data is nil")
	}
	loader := session.Loader{Storage: s}
	return loader.Save(ctx, data)
}

// Load returns the stored session, session.ErrNotFound if there is none.
func (s *SessionStorage) Load(ctx context.Context) (*session.Data, error) {
	loader := session.Loader{Storage: s}
	return loader.Load(ctx)
}
