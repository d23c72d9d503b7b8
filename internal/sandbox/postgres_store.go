package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the sandbox schema when absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    wallet_address TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    kyc_status TEXT NOT NULL DEFAULT 'none',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS linked_wallets (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    address TEXT NOT NULL,
    chain TEXT NOT NULL DEFAULT '',
    label TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, address)
);
CREATE TABLE IF NOT EXISTS linked_banks (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    bank_name TEXT NOT NULL,
    account_number TEXT NOT NULL,
    beneficiary_name TEXT NOT NULL DEFAULT '',
    label TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, bank_name, account_number)
);
CREATE TABLE IF NOT EXISTS default_methods (
    user_id UUID PRIMARY KEY REFERENCES users(id),
    wallet_id TEXT NOT NULL,
    wallet_type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    status TEXT NOT NULL,
    qr_string TEXT NOT NULL,
    bank_name TEXT NOT NULL,
    account_number TEXT NOT NULL,
    beneficiary_name TEXT NOT NULL DEFAULT '',
    usdc_units BIGINT NOT NULL,
    fee_units BIGINT NOT NULL,
    total_units BIGINT NOT NULL,
    fiat_amount BIGINT NOT NULL,
    fiat_currency TEXT NOT NULL,
    payout_address TEXT NOT NULL,
    payment_digest TEXT NOT NULL DEFAULT '',
    polls INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);`
	_, err := s.db.Exec(ctx, schema)
	return err
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// CreateUser inserts a new user.
func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.Exec(ctx, `INSERT INTO users (id, username, wallet_address, email, kyc_status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.WalletAddress, user.Email, user.KycStatus, user.CreatedAt.UTC())
	return translate(err)
}

func (s *PostgresStore) scanUser(row pgx.Row) (User, error) {
	var (
		user      User
		createdAt time.Time
	)
	if err := row.Scan(&user.ID, &user.Username, &user.WalletAddress, &user.Email, &user.KycStatus, &createdAt); err != nil {
		return User{}, translate(err)
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

const userColumns = `id, username, wallet_address, email, kyc_status, created_at`

// UserByID fetches a user by id.
func (s *PostgresStore) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UserByUsername fetches a user by handle, case-insensitively.
func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
}

// UserByAddress fetches a user by primary wallet address.
func (s *PostgresStore) UserByAddress(ctx context.Context, address string) (User, error) {
	return s.scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address = $1`, address))
}

// UpdateUsername replaces a user's handle.
func (s *PostgresStore) UpdateUsername(ctx context.Context, id, username string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET username = $2 WHERE id = $1`, id, username)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateEmail replaces a user's email.
func (s *PostgresStore) UpdateEmail(ctx context.Context, id, email string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET email = $2 WHERE id = $1`, id, email)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateKycStatus replaces a user's verification state.
func (s *PostgresStore) UpdateKycStatus(ctx context.Context, id, status string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET kyc_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddWallet links an on-chain wallet.
func (s *PostgresStore) AddWallet(ctx context.Context, w LinkedWallet) error {
	_, err := s.db.Exec(ctx, `INSERT INTO linked_wallets (id, user_id, address, chain, label, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.UserID, w.Address, w.Chain, w.Label, w.CreatedAt.UTC())
	return translate(err)
}

// ListWallets returns a user's linked on-chain wallets, oldest first.
func (s *PostgresStore) ListWallets(ctx context.Context, userID string) ([]LinkedWallet, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, address, chain, label, created_at
        FROM linked_wallets WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []LinkedWallet
	for rows.Next() {
		var w LinkedWallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Address, &w.Chain, &w.Label, &w.CreatedAt); err != nil {
			return nil, translate(err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWallet removes one linked wallet.
func (s *PostgresStore) DeleteWallet(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM linked_wallets WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddBank links a bank account.
func (s *PostgresStore) AddBank(ctx context.Context, b LinkedBank) error {
	_, err := s.db.Exec(ctx, `INSERT INTO linked_banks (id, user_id, bank_name, account_number, beneficiary_name, label, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.UserID, b.BankName, b.AccountNumber, b.BeneficiaryName, b.Label, b.CreatedAt.UTC())
	return translate(err)
}

// ListBanks returns a user's linked banks, oldest first.
func (s *PostgresStore) ListBanks(ctx context.Context, userID string) ([]LinkedBank, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, bank_name, account_number, beneficiary_name, label, created_at
        FROM linked_banks WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []LinkedBank
	for rows.Next() {
		var b LinkedBank
		if err := rows.Scan(&b.ID, &b.UserID, &b.BankName, &b.AccountNumber, &b.BeneficiaryName, &b.Label, &b.CreatedAt); err != nil {
			return nil, translate(err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBank removes one linked bank.
func (s *PostgresStore) DeleteBank(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM linked_banks WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDefault upserts the user's default method.
func (s *PostgresStore) SetDefault(ctx context.Context, userID string, choice DefaultChoice) error {
	_, err := s.db.Exec(ctx, `INSERT INTO default_methods (user_id, wallet_id, wallet_type)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET wallet_id = $2, wallet_type = $3`,
		userID, choice.WalletID, choice.WalletType)
	return translate(err)
}

// GetDefault reads the user's default method; absent means a zero choice.
func (s *PostgresStore) GetDefault(ctx context.Context, userID string) (DefaultChoice, error) {
	var choice DefaultChoice
	err := s.db.QueryRow(ctx, `SELECT wallet_id, wallet_type FROM default_methods WHERE user_id = $1`, userID).
		Scan(&choice.WalletID, &choice.WalletType)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultChoice{}, nil
	}
	return choice, translate(err)
}

// CreateOrder inserts a new order.
func (s *PostgresStore) CreateOrder(ctx context.Context, o Order) error {
	_, err := s.db.Exec(ctx, `INSERT INTO orders (id, user_id, status, qr_string, bank_name, account_number,
        beneficiary_name, usdc_units, fee_units, total_units, fiat_amount, fiat_currency,
        payout_address, payment_digest, polls, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		o.ID, o.UserID, o.Status, o.QrString, o.BankName, o.AccountNumber,
		o.BeneficiaryName, o.UsdcUnits, o.FeeUnits, o.TotalUnits, o.FiatAmount, o.FiatCurrency,
		o.PayoutAddress, o.PaymentDigest, o.Polls, o.CreatedAt.UTC(), o.UpdatedAt.UTC())
	return translate(err)
}

// OrderByID fetches one order.
func (s *PostgresStore) OrderByID(ctx context.Context, id string) (Order, error) {
	var o Order
	err := s.db.QueryRow(ctx, `SELECT id, user_id, status, qr_string, bank_name, account_number,
        beneficiary_name, usdc_units, fee_units, total_units, fiat_amount, fiat_currency,
        payout_address, payment_digest, polls, created_at, updated_at
        FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.QrString, &o.BankName, &o.AccountNumber,
			&o.BeneficiaryName, &o.UsdcUnits, &o.FeeUnits, &o.TotalUnits, &o.FiatAmount, &o.FiatCurrency,
			&o.PayoutAddress, &o.PaymentDigest, &o.Polls, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, translate(err)
	}
	return o, nil
}

// UpdateOrder replaces an order's mutable fields.
func (s *PostgresStore) UpdateOrder(ctx context.Context, o Order) error {
	tag, err := s.db.Exec(ctx, `UPDATE orders SET status = $2, payment_digest = $3, polls = $4, updated_at = $5
        WHERE id = $1`, o.ID, o.Status, o.PaymentDigest, o.Polls, time.Now().UTC())
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
