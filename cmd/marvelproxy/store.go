package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/apibillme/cache"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db        *sql.DB
	log       *log.Logger
	userCache cache.Cache
}

const reqTable string = `
  CREATE TABLE IF NOT EXISTS reqdata (
      hash TEXT NOT NULL PRIMARY KEY,
      httpdata BLOB NOT NULL,
      expiry INT NOT NULL
  )
`

const userTable string = `
  CREATE TABLE IF NOT EXISTS users (
      user TEXT NOT NULL PRIMARY KEY,
      hash TEXT NOT NULL,
      level INT NOT NULL
  )
`

func NewStore(filename string) (*Store, error) {
	logger := log.New(os.Stderr, "(store) ", log.LstdFlags)

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+filename)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers.
	db.SetMaxOpenConns(1)

	for _, ddl := range []string{reqTable, userTable} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}

	return &Store{
		db:        db,
		log:       logger,
		userCache: cache.New(256, cache.WithTTL(1*time.Hour)),
	}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

func (store *Store) DeleteBefore(expiry int64) int64 {
	res, err := store.db.Exec("DELETE FROM reqdata WHERE expiry < ?", expiry)
	if err != nil {
		dbError(store.log, err)
		return 0
	}
	n, _ := res.RowsAffected()
	return n
}

// GetResponse returns a stored response dump that has not expired at now.
func (store *Store) GetResponse(hash string, now int64) ([]byte, bool) {
	row := store.db.QueryRow("SELECT httpdata FROM reqdata WHERE hash = ? AND expiry >= ?", hash, now)
	var data []byte
	err := row.Scan(&data)
	if err == nil {
		return data, true
	}
	if !errors.Is(err, sql.ErrNoRows) {
		dbError(store.log, err)
	}
	return nil, false
}

func (store *Store) StoreResponse(hash string, res []byte, expiry int64) {
	_, err := store.db.Exec("INSERT OR REPLACE INTO reqdata (hash, httpdata, expiry) VALUES (?,?,?)",
		hash,
		res,
		expiry,
	)
	if err != nil {
		dbError(store.log, err)
	}
}

func (store *Store) AddUser(user string, pass string, level int) error {
	if user == "" || pass == "" {
		return errors.New("user and password are required")
	}
	hash, err := argon2id.CreateHash(pass, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = store.db.Exec("INSERT OR REPLACE INTO users (user, hash, level) VALUES (?,?,?)", user, hash, level)
	return err
}

func (store *Store) TestUser(user string, pass string) bool {
	digest := passDigest(pass)
	cached, ok := store.userCache.Get(user)
	if ok && subtle.ConstantTimeCompare(cached.([]byte), digest) == 1 {
		return true
	}
	row := store.db.QueryRow("SELECT hash FROM users WHERE user = ?", user)
	var hash string
	err := row.Scan(&hash)
	if err == nil {
		match, err := argon2id.ComparePasswordAndHash(pass, hash)
		if err != nil {
			store.log.Println("Error comparing password hashes", err.Error())
			return false
		}
		if match {
			store.userCache.Set(user, digest)
			return true
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		store.log.Println(err.Error())
	}
	return false
}

// passDigest is what the user cache holds instead of the password.
func passDigest(pass string) []byte {
	sum := sha256.Sum256([]byte(pass))
	return sum[:]
}

func dbError(log *log.Logger, err error) {
	if err != nil {
		log.Println("DB Error", err.Error())
	}
}
