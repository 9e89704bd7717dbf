package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

// UserRepository implements storage.UserRepository for BadgerDB.
type UserRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(backend *Backend) (*UserRepository, error) {
	idSeq, err := backend.GetSequence(userIDSeq)
	if err != nil {
		return nil, err
	}
	return &UserRepository{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (r *UserRepository) Close() error {
	return r.idSeq.Release()
}

// AddUser stores a new user and indexes it by email.
func (r *UserRepository) AddUser(ctx context.Context, user *core.User) (*core.User, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		emailKey := makeUserEmailKey(user.Email)
		if _, err := tx.Get(emailKey); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		user.Id = id
		user.CreatedAt = time.Now().UTC()

		if err := tx.Set(makeUserKey(user.Id), storage.MarshalUser(user)); err != nil {
			return err
		}
		if err := tx.Set(emailKey, storage.MarshalID(user.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id core.ID) (*core.User, error) {
	var user *core.User
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		user, err = readValue(tx, makeUserKey(id), storage.UnmarshalUser)
		return err
	}, false)
	return user, err
}

// FindUserByEmail resolves the email index and loads the user.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var user *core.User
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeUserEmailKey(email))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		var id core.ID
		err = item.Value(func(val []byte) error {
			var decodeErr error
			id, decodeErr = storage.UnmarshalID(val)
			return decodeErr
		})
		if err != nil {
			return err
		}
		user, err = readValue(tx, makeUserKey(id), storage.UnmarshalUser)
		return err
	}, false)
	return user, err
}
