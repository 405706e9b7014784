package index

import (
	"testing"
	"time"
)

func TestRecordView_AssignsID(t *testing.T) {
	db := testDB(t)
	if err := db.RecordView(View{ContentID: "intro/01", ContentType: ContentTypeTheory, Title: "Intro"}); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	var id string
	if err := db.conn.QueryRow(`SELECT id FROM content_views`).Scan(&id); err != nil {
		t.Fatal(err)
	}
	if len(id) != 36 {
		t.Errorf("id = %q, want uuid", id)
	}
}

func TestViewStats(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	views := []View{
		{ContentID: "a", ContentType: ContentTypeTheory, Title: "A", ViewedAt: now.Add(-1 * time.Hour)},
		{ContentID: "a", ContentType: ContentTypeTheory, Title: "A", ViewedAt: now.AddDate(0, 0, -10)},
		{ContentID: "a", ContentType: ContentTypeTheory, Title: "A", ViewedAt: now.AddDate(0, 0, -40), UserID: "u1"},
		{ContentID: "b", ContentType: ContentTypeTheory, Title: "B", ViewedAt: now.Add(-2 * time.Hour)},
		{ContentID: "c", ContentType: ContentTypeExercise, Title: "C", ViewedAt: now.Add(-30 * time.Minute)},
		{ContentID: "c", ContentType: ContentTypeExercise, Title: "C", ViewedAt: now.AddDate(0, 0, -20)},
	}
	for _, v := range views {
		if err := db.RecordView(v); err != nil {
			t.Fatalf("RecordView: %v", err)
		}
	}

	st, err := db.ViewStats(now, 3)
	if err != nil {
		t.Fatalf("ViewStats: %v", err)
	}
	if len(st.TopContent) != 3 || st.TopContent[0].ContentID != "a" || st.TopContent[0].Views != 3 {
		t.Errorf("top = %+v", st.TopContent)
	}
	if len(st.RecentContent) != 3 || st.RecentContent[0].ContentID != "c" {
		t.Errorf("recent = %+v", st.RecentContent)
	}
	if !st.RecentContent[0].LastViewed.Equal(now.Add(-30 * time.Minute)) {
		t.Errorf("last viewed = %v", st.RecentContent[0].LastViewed)
	}
	if st.WeeklyViews != 3 {
		t.Errorf("weekly = %d, want 3", st.WeeklyViews)
	}
	if st.MonthlyViews != 5 {
		t.Errorf("monthly = %d, want 5", st.MonthlyViews)
	}
	if st.AverageViews != 2 {
		t.Errorf("average = %v, want 2", st.AverageViews)
	}
}

func TestViewStats_Empty(t *testing.T) {
	db := testDB(t)
	st, err := db.ViewStats(time.Now(), 0)
	if err != nil {
		t.Fatalf("ViewStats: %v", err)
	}
	if st.TopContent == nil || st.RecentContent == nil {
		t.Error("empty stats should have non-nil slices")
	}
	if st.AverageViews != 0 {
		t.Errorf("average = %v", st.AverageViews)
	}
}
