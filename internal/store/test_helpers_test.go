package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/rowsync/internal/model"
)

var testNow = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testMember(name string) model.Member {
	return model.Member{
		Name:   name,
		Key:    normalize(name),
		Role:   model.RoleRower,
		Active: true,
	}
}

func normalize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func testSession(ordinal int, day int) model.Session {
	return model.Session{
		Ordinal: ordinal,
		Date:    fmt.Sprintf("2025-01-%02d", day),
		Start:   "6:00 AM",
		End:     "8:00 AM",
	}
}

// seed loads members and sessions or fails the test.
func seed(t *testing.T, s *Store, members []model.Member, sessions []model.Session) {
	t.Helper()
	ctx := context.Background()
	if res, err := s.LoadMembers(ctx, members, 0); err != nil || res.Failed > 0 {
		t.Fatalf("LoadMembers() = %+v, %v", res, err)
	}
	if res, err := s.LoadSessions(ctx, sessions, 0); err != nil || res.Failed > 0 {
		t.Fatalf("LoadSessions() = %+v, %v", res, err)
	}
}
