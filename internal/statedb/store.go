// Package statedb reads the Cursor session token from the editor's local
// state database (state.vscdb). Access is strictly read-only.
package statedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

const AccessTokenKey = "cursorAuth/accessToken"

// Store opens the database per call and never holds a connection between calls.
type Store struct{}

func New() *Store { return &Store{} }

// ReadToken returns the stored access token. A missing file yields
// core.ErrDatabaseUnreachable wrapping fs.ErrNotExist; a missing key yields
// core.ErrTokenAbsent.
func (s *Store) ReadToken(ctx context.Context, dbPath string) (token string, err error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrDatabaseUnreachable, dbPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", core.ErrDatabaseUnreachable, dbPath)
	}

	db, err := sql.Open("sqlite3", readOnlyDSN(dbPath))
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %w", core.ErrDatabaseUnreachable, dbPath, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			token = ""
			err = fmt.Errorf("%w: closing %s: %w", core.ErrDatabaseQueryFailed, dbPath, cerr)
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return "", fmt.Errorf("%w: opening %s: %w", core.ErrDatabaseUnreachable, dbPath, err)
	}

	var value sql.NullString
	err = db.QueryRowContext(ctx, `SELECT value FROM ItemTable WHERE key = ?`, AccessTokenKey).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", core.ErrTokenAbsent
	case err != nil:
		return "", fmt.Errorf("%w: %w", core.ErrDatabaseQueryFailed, err)
	}

	token = strings.TrimSpace(value.String)
	if !value.Valid || token == "" {
		return "", core.ErrTokenAbsent
	}
	return token, nil
}

// IsMissing reports whether err means the database file does not exist, as
// opposed to existing but being unreadable.
func IsMissing(err error) bool {
	return errors.Is(err, core.ErrDatabaseUnreachable) && errors.Is(err, fs.ErrNotExist)
}

// readOnlyDSN builds a read-only SQLite URI for path, escaping characters
// such as '#' and '%' that would otherwise change the URI's meaning.
func readOnlyDSN(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String()
}
