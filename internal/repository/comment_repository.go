package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/otomatiktech/consult-booking/internal/model"
)

// CommentRepo stores per-booking comments.  Each user may leave at
// most one comment per booking; the check runs before the insert in a
// transaction so concurrent submissions cannot slip past it.
type CommentRepo struct {
	db *sql.DB
}

// NewCommentRepo returns a new CommentRepo bound to the given database.
func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// Create inserts a comment unless the (booking, user) pair already has
// one, in which case ErrCommentExists is returned.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const dupQ = `SELECT 1 FROM booking_comments WHERE booking_id = ? AND user_id = ? LIMIT 1 FOR UPDATE`
	var one int
	err = tx.QueryRowContext(ctx, dupQ, c.BookingID, c.UserID).Scan(&one)
	if err == nil {
		return ErrCommentExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	const insQ = `INSERT INTO booking_comments (booking_id, user_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insQ, c.BookingID, c.UserID, c.Content, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns a comment or ErrCommentNotFound.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	const q = `SELECT id, booking_id, user_id, content, created_at, updated_at FROM booking_comments WHERE id = ?`
	var c model.Comment
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&c.ID, &c.BookingID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContent replaces a comment's text.  Ownership checks belong to
// the caller.
func (r *CommentRepo) UpdateContent(ctx context.Context, id uint64, content string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE booking_comments SET content = ?, updated_at = ? WHERE id = ?`,
		content, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// CommentDetail pairs a comment with its author's display name.
type CommentDetail struct {
	model.Comment
	AuthorName string `json:"author_name"`
}

// ListByBooking returns a booking's comments, oldest first, with
// author names.
func (r *CommentRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]CommentDetail, error) {
	const q = `SELECT c.id, c.booking_id, c.user_id, c.content, c.created_at, c.updated_at, u.name
	           FROM booking_comments c
	           JOIN users u ON u.id = c.user_id
	           WHERE c.booking_id = ?
	           ORDER BY c.created_at`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]CommentDetail, 0)
	for rows.Next() {
		var d CommentDetail
		if err := rows.Scan(&d.ID, &d.BookingID, &d.UserID, &d.Content, &d.CreatedAt, &d.UpdatedAt, &d.AuthorName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
