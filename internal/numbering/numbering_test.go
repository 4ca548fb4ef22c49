package numbering

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	countByDay map[string]int64
	taken      map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{countByDay: map[string]int64{}, taken: map[string]bool{}}
}

func (s *memoryStore) CountEntriesOnDate(_ context.Context, kind string, date time.Time) (int64, error) {
	return s.countByDay[kind+":"+date.Format("20060102")], nil
}

func (s *memoryStore) NumberExists(_ context.Context, number string) (bool, error) {
	return s.taken[number], nil
}

func (s *memoryStore) accept(kind string, date time.Time, number string) {
	s.countByDay[kind+":"+date.Format("20060102")]++
	s.taken[number] = true
}

func TestSequentialNumbers(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator("SALE", "SALE", store)
	ctx := context.Background()
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	for i, want := range []string{"SALE-20250615-001", "SALE-20250615-002", "SALE-20250615-003"} {
		got, err := gen.Next(ctx, date)
		require.NoError(t, err, "iteration %d", i)
		require.Equal(t, want, got)
		store.accept("SALE", date, got)
	}
}

func TestCollisionBumpsSuffix(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator("PUR", "PURCHASE", store)
	ctx := context.Background()
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// A concurrent writer already took -001 without bumping the day count.
	store.taken["PUR-20250615-001"] = true

	got, err := gen.Next(ctx, date)
	require.NoError(t, err)
	require.Equal(t, "PUR-20250615-002", got)
}

func TestDayBoundaryResetsSequence(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator("SALE", "SALE", store)
	ctx := context.Background()

	day1 := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	got, err := gen.Next(ctx, day1)
	require.NoError(t, err)
	store.accept("SALE", day1, got)

	day2 := day1.AddDate(0, 0, 1)
	got, err = gen.Next(ctx, day2)
	require.NoError(t, err)
	require.Equal(t, "SALE-20250616-001", got)
}

func TestSuffixGrowsPastThreeDigits(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator("SALE", "SALE", store)
	ctx := context.Background()
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	store.countByDay["SALE:20250615"] = 999
	got, err := gen.Next(ctx, date)
	require.NoError(t, err)
	require.Equal(t, "SALE-20250615-1000", got)
}
