// ABOUTME: Spaced-repetition progress stores: per-card state, append-only
// ABOUTME: review history and per-day study rollups

package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// --- Card progress ---

func (s *DB) PutCardProgress(ctx context.Context, p *CardProgress) error {
	if p == nil || p.CardID == "" || p.UserID == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx,
		`SELECT data FROM card_progress WHERE card_id = ? AND user_id = ?`, p.CardID, p.UserID)
	if err != nil {
		return err
	}
	stampMeta(&p.Meta, prior, time.Now().UTC())
	return s.writeEntity(ctx,
		MirrorWrite{Store: "card_progress", Key: mirrorKey(p.CardID, p.UserID)}, &p.Meta, p,
		`INSERT OR REPLACE INTO card_progress (card_id, user_id, deck_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.CardID, p.UserID, p.DeckID)
}

func (s *DB) GetCardProgress(ctx context.Context, cardID, userID string) (*CardProgress, error) {
	if cardID == "" || userID == "" {
		return nil, nil
	}
	return getEntity[CardProgress](ctx, s,
		`SELECT data FROM card_progress WHERE card_id = ? AND user_id = ?`, cardID, userID)
}

func (s *DB) ListCardProgressByUser(ctx context.Context, userID string) ([]CardProgress, error) {
	out, err := listEntities[CardProgress](ctx, s,
		`SELECT data FROM card_progress WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	sortProgress(out)
	return out, nil
}

func (s *DB) ListCardProgressByDeck(ctx context.Context, userID, deckID string) ([]CardProgress, error) {
	out, err := listEntities[CardProgress](ctx, s,
		`SELECT data FROM card_progress WHERE user_id = ? AND deck_id = ?`, userID, deckID)
	if err != nil {
		return nil, err
	}
	sortProgress(out)
	return out, nil
}

func (s *DB) DeleteCardProgress(ctx context.Context, cardID, userID string) error {
	if cardID == "" || userID == "" {
		return nil
	}
	return s.execDelete(ctx,
		MirrorWrite{Store: "card_progress", Key: mirrorKey(cardID, userID)},
		`DELETE FROM card_progress WHERE card_id = ? AND user_id = ?`, cardID, userID)
}

// Due cards first.
func sortProgress(out []CardProgress) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Due.Equal(out[j].Due) {
			return out[i].Due.Before(out[j].Due)
		}
		return out[i].CardID < out[j].CardID
	})
}

// --- Reviews ---

// AddReview appends one review history entry. An empty id is assigned a
// generated one; ReviewedAt defaults to now.
func (s *DB) AddReview(ctx context.Context, r *Review) error {
	if r == nil || r.CardID == "" || r.UserID == "" {
		return ErrInvalidKey
	}
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ReviewedAt.IsZero() {
		r.ReviewedAt = now
	}
	stampMeta(&r.Meta, nil, now)
	return s.writeEntity(ctx, MirrorWrite{Store: "reviews", Key: r.ID}, &r.Meta, r,
		`INSERT OR REPLACE INTO reviews (id, card_id, user_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.CardID, r.UserID)
}

func (s *DB) ListReviewsByCard(ctx context.Context, cardID, userID string) ([]Review, error) {
	return listEntities[Review](ctx, s,
		`SELECT data FROM reviews WHERE card_id = ? AND user_id = ? ORDER BY created_at`, cardID, userID)
}

// ListReviewsByUser returns the user's most recent reviews, newest first.
// A non-positive limit returns everything.
func (s *DB) ListReviewsByUser(ctx context.Context, userID string, limit int) ([]Review, error) {
	query := `SELECT data FROM reviews WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return listEntities[Review](ctx, s, query, args...)
}

// --- Daily stats ---

func (s *DB) PutDailyStat(ctx context.Context, d *DailyStat) error {
	if d == nil || d.UserID == "" || d.DeckID == "" || d.Date == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx,
		`SELECT data FROM daily_stats WHERE user_id = ? AND deck_id = ? AND date = ?`,
		d.UserID, d.DeckID, d.Date)
	if err != nil {
		return err
	}
	stampMeta(&d.Meta, prior, time.Now().UTC())
	return s.writeEntity(ctx,
		MirrorWrite{Store: "daily_stats", Key: mirrorKey(d.UserID, d.DeckID, d.Date)}, &d.Meta, d,
		`INSERT OR REPLACE INTO daily_stats (user_id, deck_id, date, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.UserID, d.DeckID, d.Date)
}

func (s *DB) GetDailyStat(ctx context.Context, userID, deckID, date string) (*DailyStat, error) {
	if userID == "" || deckID == "" || date == "" {
		return nil, nil
	}
	return getEntity[DailyStat](ctx, s,
		`SELECT data FROM daily_stats WHERE user_id = ? AND deck_id = ? AND date = ?`,
		userID, deckID, date)
}

func (s *DB) ListDailyStats(ctx context.Context, userID, deckID string) ([]DailyStat, error) {
	return listEntities[DailyStat](ctx, s,
		`SELECT data FROM daily_stats WHERE user_id = ? AND deck_id = ? ORDER BY date`, userID, deckID)
}
