package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/otomatiktech/consult-booking/internal/model"
)

// SettingsRepo stores the working-calendar configuration.  A single
// current row (id=1) is authoritative; every update also appends the
// new values to work_settings_history so past configurations remain
// auditable.  When no row has ever been saved, hard-coded defaults
// apply.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo returns a new SettingsRepo bound to the given database.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Current returns the authoritative settings, or the defaults
// (Mon–Fri, 9–17, 60-minute buffer) when none were ever saved.
func (r *SettingsRepo) Current(ctx context.Context) (model.WorkSettings, error) {
	const q = `SELECT work_days, work_start, work_end, buffer_minutes FROM work_settings WHERE id = 1`
	var days string
	var s model.WorkSettings
	err := r.db.QueryRowContext(ctx, q).Scan(&days, &s.WorkStart, &s.WorkEnd, &s.BufferMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultWorkSettings(), nil
	}
	if err != nil {
		return model.WorkSettings{}, err
	}
	s.WorkDays = ParseWorkDays(days)
	return s, nil
}

// Update replaces the current settings row and appends the new values
// to the history table in one transaction.
func (r *SettingsRepo) Update(ctx context.Context, s model.WorkSettings, updatedBy uint64) error {
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

	days := FormatWorkDays(s.WorkDays)
	now := time.Now().UTC()
	const upQ = `INSERT INTO work_settings (id, work_days, work_start, work_end, buffer_minutes, updated_at)
	             VALUES (1, ?, ?, ?, ?, ?)
	             ON DUPLICATE KEY UPDATE work_days = VALUES(work_days), work_start = VALUES(work_start),
	                                     work_end = VALUES(work_end), buffer_minutes = VALUES(buffer_minutes),
	                                     updated_at = VALUES(updated_at)`
	if _, err := tx.ExecContext(ctx, upQ, days, s.WorkStart, s.WorkEnd, s.BufferMinutes, now); err != nil {
		return err
	}

	const histQ = `INSERT INTO work_settings_history (work_days, work_start, work_end, buffer_minutes, updated_by, created_at)
	               VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, histQ, days, s.WorkStart, s.WorkEnd, s.BufferMinutes, updatedBy, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ParseWorkDays converts the stored comma-separated weekday list
// ("1,2,3") into a slice of ints, skipping anything unparsable.
func ParseWorkDays(s string) []int {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// FormatWorkDays renders a weekday slice in the stored CSV form.
func FormatWorkDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}
