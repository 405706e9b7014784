package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Content types recorded with a view.
const (
	ContentTypeTheory   = "theory"
	ContentTypeExercise = "exercise"
)

const statsLimit = 5

// View is one recorded content view.
type View struct {
	ID          string
	ContentID   string
	ContentType string
	Title       string
	UserID      string // empty for anonymous visitors
	ViewedAt    time.Time
}

// ContentViews is a per-content view count.
type ContentViews struct {
	ContentID string `json:"content_id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Views     int    `json:"views"`
}

// RecentContent is a content item with the time it was last viewed.
type RecentContent struct {
	ContentID  string    `json:"content_id"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	LastViewed time.Time `json:"last_viewed"`
}

// Stats summarises content views.
type Stats struct {
	TotalContent  int             `json:"total_content"`
	TopContent    []ContentViews  `json:"top_content"`
	RecentContent []RecentContent `json:"recent_content"`
	WeeklyViews   int             `json:"weekly_views"`
	MonthlyViews  int             `json:"monthly_views"`
	AverageViews  float64         `json:"average_views"`
}

// RecordView stores a view, assigning an id and timestamp when missing.
func (db *DB) RecordView(v View) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.ViewedAt.IsZero() {
		v.ViewedAt = time.Now()
	}
	var user sql.NullString
	if v.UserID != "" {
		user = sql.NullString{String: v.UserID, Valid: true}
	}
	_, err := db.conn.Exec(`
		INSERT INTO content_views (id, content_id, content_type, content_title, user_id, viewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.ID, v.ContentID, v.ContentType, v.Title, user, v.ViewedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("index: record view: %w", err)
	}
	return nil
}

// ViewStats aggregates views as of now. totalContent is the number of
// documents the average is computed over.
func (db *DB) ViewStats(now time.Time, totalContent int) (*Stats, error) {
	st := &Stats{
		TotalContent:  totalContent,
		TopContent:    []ContentViews{},
		RecentContent: []RecentContent{},
	}

	rows, err := db.conn.Query(`
		SELECT content_id, content_title, content_type, COUNT(*) AS views
		FROM content_views
		GROUP BY content_id, content_title, content_type
		ORDER BY views DESC, content_id
		LIMIT ?
	`, statsLimit)
	if err != nil {
		return nil, fmt.Errorf("index: top content: %w", err)
	}
	for rows.Next() {
		var c ContentViews
		if err := rows.Scan(&c.ContentID, &c.Title, &c.Type, &c.Views); err != nil {
			rows.Close()
			return nil, err
		}
		st.TopContent = append(st.TopContent, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.conn.Query(`
		SELECT content_id, content_title, content_type, MAX(viewed_at) AS last_viewed
		FROM content_views
		GROUP BY content_id, content_title, content_type
		ORDER BY last_viewed DESC, content_id
		LIMIT ?
	`, statsLimit)
	if err != nil {
		return nil, fmt.Errorf("index: recent content: %w", err)
	}
	for rows.Next() {
		var (
			c  RecentContent
			ms int64
		)
		if err := rows.Scan(&c.ContentID, &c.Title, &c.Type, &ms); err != nil {
			rows.Close()
			return nil, err
		}
		c.LastViewed = time.UnixMilli(ms).UTC()
		st.RecentContent = append(st.RecentContent, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	count := func(since time.Time) (int, error) {
		var n int
		err := db.conn.QueryRow(`SELECT COUNT(*) FROM content_views WHERE viewed_at >= ?`, since.UnixMilli()).Scan(&n)
		return n, err
	}
	if st.WeeklyViews, err = count(now.AddDate(0, 0, -7)); err != nil {
		return nil, fmt.Errorf("index: weekly views: %w", err)
	}
	if st.MonthlyViews, err = count(now.AddDate(0, 0, -30)); err != nil {
		return nil, fmt.Errorf("index: monthly views: %w", err)
	}
	if totalContent > 0 {
		total, err := count(time.UnixMilli(0))
		if err != nil {
			return nil, fmt.Errorf("index: total views: %w", err)
		}
		st.AverageViews = float64(total) / float64(totalContent)
	}
	return st, nil
}
