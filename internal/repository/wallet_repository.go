package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/otomatiktech/consult-booking/internal/model"
)

// WalletRepo owns wallet balances and the append-only transaction
// ledger.  Every balance mutation writes exactly one ledger row in the
// same transaction; debits use a conditional update so the balance can
// never go negative, even under concurrent requests against the same
// wallet.
type WalletRepo struct {
	db *sql.DB
}

// NewWalletRepo returns a new WalletRepo bound to the given database.
func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

func scanWallet(row interface {
	Scan(dest ...any) error
}) (*model.Wallet, error) {
	var w model.Wallet
	var balance string
	if err := row.Scan(&w.ID, &w.UserID, &balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	w.Balance = d
	return &w, nil
}

const walletColumns = `id, user_id, balance, created_at, updated_at`

// GetByUserID returns a user's wallet or ErrWalletNotFound.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Wallet, error) {
	const q = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = ?`
	w, err := scanWallet(r.db.QueryRowContext(ctx, q, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	return w, err
}

// GetOrCreate returns the user's wallet, creating a zero-balance one
// on first access.  The insert ignores duplicate-key races so two
// concurrent first calls both observe the same wallet.
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID uint64) (*model.Wallet, error) {
	w, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}
	now := time.Now().UTC()
	const insQ = `INSERT IGNORE INTO wallets (user_id, balance, created_at, updated_at) VALUES (?, '0.00', ?, ?)`
	if _, err := r.db.ExecContext(ctx, insQ, userID, now, now); err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// Credit appends a credit ledger row and raises the balance by the
// same amount in one transaction.  It returns the updated wallet.
func (r *WalletRepo) Credit(ctx context.Context, walletID uint64, amount decimal.Decimal, description string, performedBy uint64) (*model.Wallet, error) {
	return r.apply(ctx, walletID, amount, model.TransactionCredit, description, performedBy, nil)
}

// Debit appends a debit ledger row and lowers the balance in one
// transaction.  The balance update is conditional on balance >=
// amount; when the condition fails nothing is written and
// ErrInsufficientFunds is returned.  Two concurrent debits whose sum
// exceeds the balance cannot both succeed: the row lock taken by the
// first conditional update serializes the second behind it.
func (r *WalletRepo) Debit(ctx context.Context, walletID uint64, amount decimal.Decimal, description string, performedBy uint64) (*model.Wallet, error) {
	return r.apply(ctx, walletID, amount, model.TransactionDebit, description, performedBy, nil)
}

// RefundBooking credits the wallet with a booking's cost unless a
// refund for that booking has already been recorded.  The existence
// check and the credit share one transaction, so a retried
// cancellation after a crash cannot double-refund.  The boolean
// reports whether a credit was actually applied.
func (r *WalletRepo) RefundBooking(ctx context.Context, walletID uint64, bookingID uint64, amount decimal.Decimal, description string, performedBy uint64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const dupQ = `SELECT 1 FROM wallet_transactions WHERE wallet_id = ? AND booking_id = ? AND type = 'credit' LIMIT 1 FOR UPDATE`
	var one int
	err = tx.QueryRowContext(ctx, dupQ, walletID, bookingID).Scan(&one)
	if err == nil {
		// Refund already on the ledger; nothing more to do.
		if err := tx.Commit(); err != nil {
			return false, err
		}
		committed = true
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	if err := applyTx(ctx, tx, walletID, amount, model.TransactionCredit, description, performedBy, &bookingID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

func (r *WalletRepo) apply(ctx context.Context, walletID uint64, amount decimal.Decimal, tType model.TransactionType, description string, performedBy uint64, bookingID *uint64) (*model.Wallet, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := applyTx(ctx, tx, walletID, amount, tType, description, performedBy, bookingID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	const q = `SELECT ` + walletColumns + ` FROM wallets WHERE id = ?`
	return scanWallet(r.db.QueryRowContext(ctx, q, walletID))
}

// applyTx performs the balance mutation and the paired ledger insert
// within the caller's transaction.  The debit path updates first with
// a balance >= amount guard: zero affected rows means either the
// wallet is missing or the funds are insufficient, and in both cases
// no ledger row is written.
func applyTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal, tType model.TransactionType, description string, performedBy uint64, bookingID *uint64) error {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if tType == model.TransactionDebit {
		const q = `UPDATE wallets SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ?`
		res, err = tx.ExecContext(ctx, q, amount.String(), now, walletID, amount.String())
	} else {
		const q = `UPDATE wallets SET balance = balance + ?, updated_at = ? WHERE id = ?`
		res, err = tx.ExecContext(ctx, q, amount.String(), now, walletID)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if tType == model.TransactionDebit {
			var exists int
			if scanErr := tx.QueryRowContext(ctx, `SELECT 1 FROM wallets WHERE id = ?`, walletID).Scan(&exists); errors.Is(scanErr, sql.ErrNoRows) {
				return ErrWalletNotFound
			} else if scanErr != nil {
				return scanErr
			}
			return ErrInsufficientFunds
		}
		return ErrWalletNotFound
	}

	const insQ = `INSERT INTO wallet_transactions (wallet_id, amount, type, description, performed_by, booking_id, created_at)
	              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insQ, walletID, amount.String(), tType, description, performedBy, bookingID, now)
	return err
}

// TransactionDetail is a ledger row joined with the name of the user
// who performed it, as shown in the wallet history view.
type TransactionDetail struct {
	model.WalletTransaction
	PerformedByName string `json:"performed_by_name"`
}

// RecentTransactions returns the newest ledger rows for a wallet, most
// recent first, joined with the performer's display name.
func (r *WalletRepo) RecentTransactions(ctx context.Context, walletID uint64, limit int) ([]TransactionDetail, error) {
	const q = `SELECT wt.id, wt.wallet_id, wt.amount, wt.type, wt.description, wt.performed_by, wt.booking_id, wt.created_at, u.name
	           FROM wallet_transactions wt
	           JOIN users u ON u.id = wt.performed_by
	           WHERE wt.wallet_id = ?
	           ORDER BY wt.created_at DESC, wt.id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TransactionDetail, 0, limit)
	for rows.Next() {
		var d TransactionDetail
		var amount string
		var bookingID sql.NullInt64
		if err := rows.Scan(&d.ID, &d.WalletID, &amount, &d.Type, &d.Description,
			&d.PerformedBy, &bookingID, &d.CreatedAt, &d.PerformedByName); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		d.Amount = dec
		if bookingID.Valid {
			v := uint64(bookingID.Int64)
			d.BookingID = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
