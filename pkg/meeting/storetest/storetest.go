// Package storetest provides a conformance suite that every
// [meeting.Store] implementation runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

// Factory returns a fresh, empty store. The suite closes it when done.
type Factory func(t *testing.T) meeting.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("InsertAssignsID", func(t *testing.T) { testInsertAssignsID(t, newStore) })
	t.Run("UpdateKeepsID", func(t *testing.T) { testUpdateKeepsID(t, newStore) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore) })
	t.Run("ListRoundTrip", func(t *testing.T) { testListRoundTrip(t, newStore) })
	t.Run("GetAllOrder", func(t *testing.T) { testGetAllOrder(t, newStore) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newStore) })
	t.Run("SearchLiteralWildcards", func(t *testing.T) { testSearchLiteralWildcards(t, newStore) })
	t.Run("RejectsInvalid", func(t *testing.T) { testRejectsInvalid(t, newStore) })
}

func open(t *testing.T, newStore Factory) meeting.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustNew(t *testing.T, opts ...meeting.Option) *meeting.Record {
	t.Helper()
	rec, err := meeting.New(opts...)
	if err != nil {
		t.Fatalf("meeting.New: %v", err)
	}
	return rec
}

func mustSave(t *testing.T, s meeting.Store, rec *meeting.Record) int64 {
	t.Helper()
	id, err := s.Save(context.Background(), rec)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return id
}

func testInsertAssignsID(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	rec := mustNew(t, meeting.WithTitle("Kickoff"), meeting.WithTranscript("hello team"))
	id := mustSave(t, s, rec)
	if id == 0 {
		t.Fatal("Save returned id 0")
	}
	if rec.ID != id {
		t.Errorf("rec.ID = %d, want %d", rec.ID, id)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for saved record")
	}
	if got.ID != id || got.Title != "Kickoff" || got.Transcript != "hello team" || got.Date != rec.Date {
		t.Errorf("Get = %+v, want fields of %+v", got, rec)
	}

	other := mustNew(t)
	if id2 := mustSave(t, s, other); id2 == id {
		t.Errorf("second insert reused id %d", id)
	}
}

func testUpdateKeepsID(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	rec := mustNew(t, meeting.WithTitle("Draft"))
	id := mustSave(t, s, rec)

	rec.Title = "Final"
	rec.ActionItems = []string{"send notes"}
	id2 := mustSave(t, s, rec)
	if id2 != id {
		t.Fatalf("update returned id %d, want %d", id2, id)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("GetAll returned %d records, want 1", len(all))
	}
	if all[0].Title != "Final" {
		t.Errorf("Title = %q, want Final", all[0].Title)
	}
	if len(all[0].ActionItems) != 1 || all[0].ActionItems[0] != "send notes" {
		t.Errorf("ActionItems = %v", all[0].ActionItems)
	}
}

func testUpdateMissing(t *testing.T, newStore Factory) {
	s := open(t, newStore)

	rec := mustNew(t)
	rec.ID = 4242
	_, err := s.Save(context.Background(), rec)
	if !errors.Is(err, meeting.ErrNotFound) {
		t.Fatalf("Save of unknown id error = %v, want ErrNotFound", err)
	}
}

func testGetMissing(t *testing.T, newStore Factory) {
	s := open(t, newStore)

	got, err := s.Get(context.Background(), 999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get(999) = %+v, want nil", got)
	}
}

func testListRoundTrip(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	empty := mustNew(t)
	full := mustNew(t,
		meeting.WithKeyPoints([]string{"budget", "budget", "hiring"}),
		meeting.WithActionItems([]string{"Bob: QA", `say "hi"`}),
	)
	mustSave(t, s, empty)
	mustSave(t, s, full)

	got, err := s.Get(ctx, empty.ID)
	if err != nil || got == nil {
		t.Fatalf("Get(empty) = %v, %v", got, err)
	}
	if got.KeyPoints == nil || len(got.KeyPoints) != 0 {
		t.Errorf("empty KeyPoints = %#v, want []", got.KeyPoints)
	}
	if got.ActionItems == nil || len(got.ActionItems) != 0 {
		t.Errorf("empty ActionItems = %#v, want []", got.ActionItems)
	}

	got, err = s.Get(ctx, full.ID)
	if err != nil || got == nil {
		t.Fatalf("Get(full) = %v, %v", got, err)
	}
	if !equal(got.KeyPoints, full.KeyPoints) {
		t.Errorf("KeyPoints = %v, want %v", got.KeyPoints, full.KeyPoints)
	}
	if !equal(got.ActionItems, full.ActionItems) {
		t.Errorf("ActionItems = %v, want %v", got.ActionItems, full.ActionItems)
	}
}

func testGetAllOrder(t *testing.T, newStore Factory) {
	s := open(t, newStore)

	for _, d := range []string{"2024-02-01 09:00", "2024-03-15 14:30", "2023-12-31 23:59"} {
		mustSave(t, s, mustNew(t, meeting.WithDate(d), meeting.WithTitle(d)))
	}

	all, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	want := []string{"2024-03-15 14:30", "2024-02-01 09:00", "2023-12-31 23:59"}
	if len(all) != len(want) {
		t.Fatalf("GetAll returned %d records, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].Date != w {
			t.Errorf("all[%d].Date = %q, want %q", i, all[i].Date, w)
		}
	}
}

func testDelete(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	rec := mustNew(t, meeting.WithAudioPath("/tmp/x.wav"))
	id := mustSave(t, s, rec)

	path, found, err := s.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !found || path != "/tmp/x.wav" {
		t.Errorf("Delete = (%q, %v), want (/tmp/x.wav, true)", path, found)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got != nil {
		t.Error("record still present after delete")
	}

	path, found, err = s.Delete(ctx, id)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if found || path != "" {
		t.Errorf("second Delete = (%q, %v), want (\"\", false)", path, found)
	}
}

func testSearch(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	mustSave(t, s, mustNew(t, meeting.WithTitle("Budget review"), meeting.WithDate("2024-01-01 10:00")))
	mustSave(t, s, mustNew(t, meeting.WithTranscript("we discussed the BUDGET at length"), meeting.WithDate("2024-02-01 10:00")))
	mustSave(t, s, mustNew(t, meeting.WithSummary("Hiring plan only"), meeting.WithDate("2024-03-01 10:00")))

	got, err := s.Search(ctx, "budget")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search(budget) returned %d records, want 2", len(got))
	}
	if got[0].Date != "2024-02-01 10:00" || got[1].Date != "2024-01-01 10:00" {
		t.Errorf("Search order = [%s, %s], want newest first", got[0].Date, got[1].Date)
	}

	got, err = s.Search(ctx, "hiring")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Search(hiring) returned %d records, want 1", len(got))
	}

	got, err = s.Search(ctx, "nothing matches this")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search(no match) = %#v, want empty", got)
	}
}

func testSearchLiteralWildcards(t *testing.T, newStore Factory) {
	s := open(t, newStore)

	mustSave(t, s, mustNew(t, meeting.WithTitle("Q3 at 100% capacity")))
	mustSave(t, s, mustNew(t, meeting.WithTitle("Q3 at 1000 capacity")))

	got, err := s.Search(context.Background(), "100%")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search(100%%) returned %d records, want 1", len(got))
	}
	if got[0].Title != "Q3 at 100% capacity" {
		t.Errorf("Search(100%%) matched %q", got[0].Title)
	}
}

func testRejectsInvalid(t *testing.T, newStore Factory) {
	s := open(t, newStore)

	rec := mustNew(t)
	rec.Title = ""
	if _, err := s.Save(context.Background(), rec); !errors.Is(err, meeting.ErrValidation) {
		t.Fatalf("Save of blank title error = %v, want ErrValidation", err)
	}
	if rec.ID != 0 {
		t.Errorf("rec.ID = %d after failed save, want 0", rec.ID)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
