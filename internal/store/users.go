// ABOUTME: Learner account store; credential material is stored opaquely and
// ABOUTME: never produced or verified here

package store

import (
	"context"
	"sort"
	"time"
)

func (s *DB) PutUser(ctx context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx, `SELECT data FROM users WHERE id = ?`, u.ID)
	if err != nil {
		return err
	}
	stampMeta(&u.Meta, prior, time.Now().UTC())
	return s.putUserRow(ctx, u)
}

// PutUserRaw writes a user preserving caller-supplied timestamps.
func (s *DB) PutUserRaw(ctx context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return ErrInvalidKey
	}
	fillMeta(&u.Meta, time.Now().UTC())
	return s.putUserRow(ctx, u)
}

func (s *DB) putUserRow(ctx context.Context, u *User) error {
	return s.writeEntity(ctx, MirrorWrite{Store: "users", Key: u.ID}, &u.Meta, u,
		`INSERT OR REPLACE INTO users (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		u.ID)
}

func (s *DB) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, nil
	}
	return getEntity[User](ctx, s, `SELECT data FROM users WHERE id = ?`, id)
}

func (s *DB) ListUsers(ctx context.Context) ([]User, error) {
	out, err := listEntities[User](ctx, s, `SELECT data FROM users`)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *DB) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "users", Key: id},
		`DELETE FROM users WHERE id = ?`, id)
}
