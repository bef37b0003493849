package repositories

import (
	"context"
	"errors"

	"github.com/sbilibin2017/gw-item-tracker/internal/models"
)

const usersCollection = "users"

// UserRepository persists users in the users collection.
type UserRepository struct {
	docs *DocumentStore
}

func NewUserRepository(docs *DocumentStore) *UserRepository {
	return &UserRepository{docs: docs}
}

// Create stores a new user and returns it with the generated id.
func (r *UserRepository) Create(ctx context.Context, user *models.UserDB) (*models.UserDB, error) {
	id, err := r.docs.Create(ctx, usersCollection, user)
	if err != nil {
		return nil, err
	}

	created := *user
	created.ID = id
	return &created, nil
}

// GetByEmail returns the user with the exact email, or nil when there is none.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.UserDB, error) {
	it, err := r.docs.Query(ctx, usersCollection, Filter{Field: "email", Value: email}, 1)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	if !it.Next() {
		return nil, it.Err()
	}

	var user models.UserDB
	if err := it.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the user with the given id, or nil when there is none.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.UserDB, error) {
	var user models.UserDB
	err := r.docs.Get(ctx, usersCollection, id, &user)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
