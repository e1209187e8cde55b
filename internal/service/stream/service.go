// Package stream lists approved birthdays for the public carousel.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/model"
)

var ErrInvalidDay = errors.New("invalid day, expected MM-DD")

type entryRepository interface {
	ListByDay(ctx context.Context, month, day int) ([]model.ApprovedEntry, error)
	CountsByDay(ctx context.Context) (map[string]int, error)
}

type localStore interface {
	LocalEntries(ctx context.Context) ([]model.ApprovedEntry, error)
}

// Service merges database entries with entries kept in the local fallback store.
type Service struct {
	entries entryRepository
	local   localStore
}

// NewService creates a new Service.
func NewService(e entryRepository, l localStore) *Service {
	return &Service{entries: e, local: l}
}

// ParseDay parses "MM-DD". The year is irrelevant, so 02-29 is accepted.
func ParseDay(s string) (month, day int, err error) {
	t, err := time.Parse("01-02-2006", s+"-2000")
	if err != nil {
		return 0, 0, ErrInvalidDay
	}
	return int(t.Month()), t.Day(), nil
}

// ByDay returns playable entries born on month/day, newest approval first.
func (s *Service) ByDay(ctx context.Context, month, day int) ([]model.ApprovedEntry, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, ErrInvalidDay
	}

	entries, err := s.entries.ListByDay(ctx, month, day)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	key := fmt.Sprintf("%02d-%02d", month, day)
	for _, e := range s.localEntries(ctx) {
		if e.DayKey() == key && e.HasVideo() {
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ApprovedAt.After(entries[j].ApprovedAt)
	})

	if entries == nil {
		entries = []model.ApprovedEntry{}
	}

	return entries, nil
}

// Counts returns the number of playable entries per "MM-DD".
func (s *Service) Counts(ctx context.Context) (map[string]int, error) {
	counts, err := s.entries.CountsByDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	if counts == nil {
		counts = make(map[string]int)
	}

	for _, e := range s.localEntries(ctx) {
		if e.HasVideo() {
			counts[e.DayKey()]++
		}
	}

	return counts, nil
}

// localEntries never fails the listing: the fallback store is secondary.
func (s *Service) localEntries(ctx context.Context) []model.ApprovedEntry {
	if s.local == nil {
		return nil
	}

	entries, err := s.local.LocalEntries(ctx)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to read local entries")
		return nil
	}

	return entries
}
