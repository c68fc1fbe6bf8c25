package session

import (
	"context"
	"errors"

	"github.com/ariebrainware/cml-tracker/model"
	"gorm.io/gorm"
)

// DatabaseRepository persists sessions in the sessions table.
type DatabaseRepository struct {
	db *gorm.DB
}

func NewDatabaseRepository(db *gorm.DB) *DatabaseRepository {
	return &DatabaseRepository{db: db}
}

func (r *DatabaseRepository) Save(ctx context.Context, rec Record) (string, error) {
	row := model.Session{
		Token:     newToken(),
		Kind:      string(rec.Kind),
		Identity:  rec.Identity,
		Name:      rec.Name,
		LoginTime: rec.LoginTime,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.Token, nil
}

func (r *DatabaseRepository) Load(ctx context.Context, token string) (Record, error) {
	var row model.Session
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	kind, err := ParseKind(row.Kind)
	if err != nil {
		return Record{}, err
	}
	return Record{Kind: kind, Identity: row.Identity, Name: row.Name, LoginTime: row.LoginTime}, nil
}

func (r *DatabaseRepository) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error
}

func (r *DatabaseRepository) InvalidateIdentity(ctx context.Context, kind Kind, identity string) error {
	return r.db.WithContext(ctx).
		Where("kind = ? AND identity = ?", string(kind), identity).
		Delete(&model.Session{}).Error
}
