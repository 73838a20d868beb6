package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// userRepo implements the User repository on sqlite
type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new User repository
func NewUserRepo(dbPath string) (repo.UserRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			openid TEXT PRIMARY KEY,
			nickname TEXT NOT NULL DEFAULT '',
			subscribe INTEGER NOT NULL DEFAULT 0,
			subscribe_time INTEGER NOT NULL DEFAULT 0,
			last_sync_time INTEGER NOT NULL,
			user_info TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_users_subscribe ON users(subscribe)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &userRepo{db: db}, nil
}

const userColumns = `openid, nickname, subscribe, subscribe_time, last_sync_time, user_info`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.StoredUser, error) {
	var user domain.StoredUser
	var subscribe int
	var subscribeTime, lastSyncTime int64
	var info string
	if err := row.Scan(&user.OpenID, &user.Nickname, &subscribe, &subscribeTime, &lastSyncTime, &info); err != nil {
		return nil, err
	}

	user.Subscribe = subscribe == 1
	if subscribeTime > 0 {
		user.SubscribeTime = time.Unix(subscribeTime, 0)
	}
	user.LastSyncTime = time.Unix(lastSyncTime, 0)
	if info != "" {
		var ui domain.UserInfo
		if err := json.Unmarshal([]byte(info), &ui); err != nil {
			return nil, fmt.Errorf("failed to decode user info: %w", err)
		}
		user.UserInfo = &ui
	}
	return &user, nil
}

// Get gets a user by OpenID
func (r *userRepo) Get(ctx context.Context, openID string) (*domain.StoredUser, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE openid = ?`, openID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Save saves a user
func (r *userRepo) Save(ctx context.Context, user *domain.StoredUser) error {
	var info string
	if user.UserInfo != nil {
		data, err := json.Marshal(user.UserInfo)
		if err != nil {
			return fmt.Errorf("failed to encode user info: %w", err)
		}
		info = string(data)
	}

	var subscribeTime int64
	if !user.SubscribeTime.IsZero() {
		subscribeTime = user.SubscribeTime.Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		user.OpenID,
		user.Nickname,
		boolToInt(user.Subscribe),
		subscribeTime,
		user.LastSyncTime.Unix(),
		info,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// SetSubscribed updates the subscribe flag of a known user
func (r *userRepo) SetSubscribed(ctx context.Context, openID string, subscribed bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET subscribe = ?, last_sync_time = ? WHERE openid = ?
	`, boolToInt(subscribed), time.Now().Unix(), openID)
	if err != nil {
		return false, fmt.Errorf("failed to update subscribe: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update subscribe: %w", err)
	}
	return n > 0, nil
}

// List lists users ordered by OpenID
func (r *userRepo) List(ctx context.Context, subscribedOnly bool) ([]*domain.StoredUser, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if subscribedOnly {
		query += ` WHERE subscribe = 1`
	}
	query += ` ORDER BY openid`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.StoredUser
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Close closes the database
func (r *userRepo) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
