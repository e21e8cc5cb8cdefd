package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/TomKlotzPro/openbite/models"
)

// BadgerUserRepository implements UserRepository on the embedded store.
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository.
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

func (r *BadgerUserRepository) Save(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	return r.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, userKeyPrefix+user.ID, newUserRecord(user))
	})
}

func (r *BadgerUserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := make(map[string]*models.User, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range uniqueIDs(ids) {
			var user userRecord
			err := getJSON(txn, userKeyPrefix+id, &user)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			u := user.toModel()
			found[id] = &u
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// userRecord is the stored form of a user; models.User hides the password hash from JSON.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar"`
	PasswordHash string    `json:"password"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func newUserRecord(u *models.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		AvatarURL:    u.AvatarURL,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toModel() models.User {
	return models.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		AvatarURL:    r.AvatarURL,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
