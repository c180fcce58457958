package memory

import (
	"context"
	"errors"
	"testing"

	"stocktrack/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()

	date, err := core.NewDate(2022, 7, 5)
	if err != nil {
		t.Fatalf("NewDate: %v", err)
	}

	ref, err := s.Append(context.Background(), core.Entry{
		CountID: 1,
		User:    "alice",
		Stock:   "Shutterstock",
		Date:    date,
		Photo:   3,
		Video:   1,
		Income:  4.5,
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Stock != "Shutterstock" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestMemoryStoreFail(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.Fail(boom)

	if _, err := s.Append(context.Background(), core.Entry{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	s.Fail(nil)
	if _, err := s.Append(context.Background(), core.Entry{}); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}
