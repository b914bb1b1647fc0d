package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/jrsteele09/go-social-server/users/sqlitestore/migrations"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

var _ users.UserRepo = (*Store)(nil)

const userColumns = `id, provider, provider_id, name, email, nickname, image_url,
	refresh_token_hash, refresh_token_expires_at, created_at, updated_at, deleted_at`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

type userRow struct {
	ID                    string         `db:"id"`
	Provider              string         `db:"provider"`
	ProviderID            string         `db:"provider_id"`
	Name                  string         `db:"name"`
	Email                 string         `db:"email"`
	Nickname              string         `db:"nickname"`
	ImageURL              string         `db:"image_url"`
	RefreshTokenHash      sql.NullString `db:"refresh_token_hash"`
	RefreshTokenExpiresAt sql.NullInt64  `db:"refresh_token_expires_at"`
	CreatedAt             int64          `db:"created_at"`
	UpdatedAt             int64          `db:"updated_at"`
	DeletedAt             sql.NullInt64  `db:"deleted_at"`
}

func (r userRow) toDomain(hashtags []string) *users.User {
	u := &users.User{
		ID:               r.ID,
		Provider:         r.Provider,
		ProviderID:       r.ProviderID,
		Name:             r.Name,
		Email:            r.Email,
		Nickname:         r.Nickname,
		ImageURL:         r.ImageURL,
		Hashtags:         hashtags,
		RefreshTokenHash: r.RefreshTokenHash.String,
		CreatedAt:        fromMillis(r.CreatedAt),
		UpdatedAt:        fromMillis(r.UpdatedAt),
	}
	if r.RefreshTokenExpiresAt.Valid {
		u.RefreshTokenExpiresAt = fromMillis(r.RefreshTokenExpiresAt.Int64)
	}
	if r.DeletedAt.Valid {
		deletedAt := fromMillis(r.DeletedAt.Int64)
		u.DeletedAt = &deletedAt
	}
	return u
}

func nullableHash(hash string) sql.NullString {
	return sql.NullString{String: hash, Valid: hash != ""}
}

func nullableMillis(t time.Time) sql.NullInt64 {
	return sql.NullInt64{Int64: toMillis(t), Valid: !t.IsZero()}
}

// Store implements the credential store over SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens the SQLite file at path and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	// SQLite serialises writers anyway; one connection keeps the
	// compare-and-swap updates free of SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}

	store := &Store{db: db}
	if err := store.runMigrations(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return errors.Wrap(err, "create schema_migrations")
	}

	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return errors.Wrap(err, "list migrations")
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := s.db.Get(&applied, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name); err != nil {
			return errors.Wrapf(err, "check migration %s", name)
		}
		if applied > 0 {
			continue
		}
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return errors.Wrapf(err, "read migration %s", name)
		}
		tx, err := s.db.Beginx()
		if err != nil {
			return errors.Wrap(err, "begin migration")
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "apply migration %s", name)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "record migration %s", name)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit migration %s", name)
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	row := userRow{
		ID:                    user.ID,
		Provider:              user.Provider,
		ProviderID:            user.ProviderID,
		Name:                  user.Name,
		Email:                 user.Email,
		Nickname:              user.Nickname,
		ImageURL:              user.ImageURL,
		RefreshTokenHash:      nullableHash(user.RefreshTokenHash),
		RefreshTokenExpiresAt: nullableMillis(user.RefreshTokenExpiresAt),
		CreatedAt:             toMillis(user.CreatedAt),
		UpdatedAt:             toMillis(user.UpdatedAt),
	}
	if user.DeletedAt != nil {
		row.DeletedAt = nullableMillis(*user.DeletedAt)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Store.Create begin")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (
		:id, :provider, :provider_id, :name, :email, :nickname, :image_url,
		:refresh_token_hash, :refresh_token_expires_at, :created_at, :updated_at, :deleted_at)`, row)
	if err != nil {
		return translateConstraintError(err, "Store.Create insert")
	}
	if err := replaceHashtags(ctx, tx, user.ID, user.Hashtags); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "Store.Create commit")
}

func (s *Store) Update(ctx context.Context, user *users.User) error {
	user.UpdatedAt = time.Now().UTC()
	var deletedAt sql.NullInt64
	if user.DeletedAt != nil {
		deletedAt = nullableMillis(*user.DeletedAt)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Store.Update begin")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE users
		SET name = ?, email = ?, nickname = ?, image_url = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?`,
		user.Name, user.Email, user.Nickname, user.ImageURL, deletedAt, toMillis(user.UpdatedAt), user.ID)
	if err != nil {
		return translateConstraintError(err, "Store.Update")
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := replaceHashtags(ctx, tx, user.ID, user.Hashtags); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "Store.Update commit")
}

func (s *Store) GetByID(ctx context.Context, id string) (*users.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) GetByProvider(ctx context.Context, provider, providerID string) (*users.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_id = ?`, provider, providerID)
}

func (s *Store) GetByNickname(ctx context.Context, nickname string) (*users.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE nickname = ?`, nickname)
}

func (s *Store) GetByRefreshToken(ctx context.Context, tokenHash string) (*users.User, error) {
	if tokenHash == "" {
		return nil, apperrors.ErrUserNotFound
	}
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token_hash = ?`, tokenHash)
}

func (s *Store) SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		nullableHash(tokenHash), nullableMillis(expiresAt), toMillis(time.Now()), userID)
	if err != nil {
		return errors.Wrap(err, "Store.SetRefreshToken")
	}
	return requireAffected(res)
}

func (s *Store) SwapRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	if oldHash == "" {
		return users.ErrRefreshTokenMismatch
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ? AND refresh_token_hash = ?`,
		nullableHash(newHash), nullableMillis(expiresAt), toMillis(time.Now()), userID, oldHash)
	if err != nil {
		return errors.Wrap(err, "Store.SwapRefreshToken")
	}
	if err := requireAffected(res); err != nil {
		if !apperrors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}
		if _, lookupErr := s.GetByID(ctx, userID); lookupErr != nil {
			return lookupErr
		}
		return users.ErrRefreshTokenMismatch
	}
	return nil
}

func (s *Store) ClearRefreshToken(ctx context.Context, userID string) error {
	return s.SetRefreshToken(ctx, userID, "", time.Time{})
}

func (s *Store) SoftDelete(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET deleted_at = ?, refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = ?
		WHERE id = ?`,
		toMillis(at), toMillis(time.Now()), userID)
	if err != nil {
		return errors.Wrap(err, "Store.SoftDelete")
	}
	return requireAffected(res)
}

func (s *Store) getOne(ctx context.Context, query string, args ...any) (*users.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "Store.getOne")
	}

	hashtags := make([]string, 0)
	if err := s.db.SelectContext(ctx, &hashtags, `SELECT name FROM user_hashtags WHERE user_id = ? ORDER BY position`, row.ID); err != nil {
		return nil, errors.Wrap(err, "Store.getOne hashtags")
	}
	return row.toDomain(hashtags), nil
}

func replaceHashtags(ctx context.Context, tx *sqlx.Tx, userID string, hashtags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_hashtags WHERE user_id = ?`, userID); err != nil {
		return errors.Wrap(err, "delete hashtags")
	}
	for i, tag := range hashtags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_hashtags (user_id, position, name) VALUES (?, ?, ?)`, userID, i, tag); err != nil {
			return errors.Wrap(err, "insert hashtag")
		}
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func translateConstraintError(err error, op string) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.nickname"):
		return users.ErrNicknameTaken
	case strings.Contains(msg, "UNIQUE constraint failed: users.provider"):
		return users.ErrIdentityExists
	}
	return fmt.Errorf("%s: %w", op, err)
}
