// Package store archives scraped thread records in SQLite, so repeated runs
// against the same thread build a history of counter snapshots.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/unspool/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		url TEXT PRIMARY KEY,
		author_handle TEXT NOT NULL,
		author_name TEXT,
		author_avatar TEXT,
		tweet_count INTEGER NOT NULL,
		scraped_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tweets (
		id TEXT PRIMARY KEY,
		thread_url TEXT NOT NULL REFERENCES threads(url),
		timestamp DATETIME,
		text TEXT NOT NULL,
		likes INTEGER,
		retweets INTEGER,
		replies INTEGER,
		views INTEGER,
		media TEXT,
		url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tweets_thread ON tweets(thread_url);
	CREATE INDEX IF NOT EXISTS idx_tweets_timestamp ON tweets(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveThread upserts a thread and all of its tweets. Counters are refreshed
// on conflict so re-scrapes record current engagement.
func (s *Store) SaveThread(t *types.Thread) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO threads (url, author_handle, author_name, author_avatar, tweet_count, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			tweet_count = excluded.tweet_count,
			scraped_at = excluded.scraped_at
	`, t.URL, t.Author.Handle, t.Author.DisplayName, t.Author.AvatarURL, t.Count, t.ScrapedAt)
	if err != nil {
		return err
	}

	for i := range t.Tweets {
		tw := &t.Tweets[i]
		mediaJSON, _ := json.Marshal(tw.Media)

		_, err = tx.Exec(`
			INSERT INTO tweets (id, thread_url, timestamp, text, likes, retweets, replies, views, media, url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				likes = excluded.likes,
				retweets = excluded.retweets,
				replies = excluded.replies,
				views = excluded.views,
				media = excluded.media
		`, tw.ID, t.URL, tw.Timestamp, tw.Text, tw.Likes, tw.Retweets, tw.Replies, tw.Views, string(mediaJSON), tw.URL)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetThread loads one archived thread with its tweets in timestamp order.
func (s *Store) GetThread(url string) (*types.Thread, error) {
	var t types.Thread
	err := s.db.QueryRow(`
		SELECT url, author_handle, author_name, author_avatar, tweet_count, scraped_at
		FROM threads WHERE url = ?
	`, url).Scan(&t.URL, &t.Author.Handle, &t.Author.DisplayName, &t.Author.AvatarURL, &t.Count, &t.ScrapedAt)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT id, timestamp, text, likes, retweets, replies, views, media, url
		FROM tweets WHERE thread_url = ? ORDER BY timestamp
	`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tw types.Tweet
		var mediaJSON string
		err := rows.Scan(&tw.ID, &tw.Timestamp, &tw.Text, &tw.Likes, &tw.Retweets,
			&tw.Replies, &tw.Views, &mediaJSON, &tw.URL)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(mediaJSON), &tw.Media); err != nil {
			return nil, fmt.Errorf("corrupt media column for tweet %s: %w", tw.ID, err)
		}
		t.Tweets = append(t.Tweets, tw)
	}

	return &t, rows.Err()
}

// ThreadExists checks if a thread URL has been archived
func (s *Store) ThreadExists(url string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM threads WHERE url = ?)`, url).Scan(&exists)
	return exists, err
}
