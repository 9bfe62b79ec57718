package periods

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateContiguousMonths(t *testing.T) {
	now := date(2024, time.June, 15)
	got := Generate(date(2023, time.November, 20), date(2024, time.February, 3), now)
	require.Len(t, got, 4)

	require.Equal(t, "2023-11", got[0].Name)
	require.Equal(t, date(2023, time.November, 1), got[0].StartDate)
	require.Equal(t, date(2023, time.November, 30), got[0].EndDate)
	require.Equal(t, 4, got[0].Quarter)

	require.Equal(t, "2024-02", got[3].Name)
	require.Equal(t, date(2024, time.February, 29), got[3].EndDate, "leap February")
	require.Equal(t, 1, got[3].Quarter)

	// Contiguity: each end date is exactly one day before the next start.
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i].StartDate.AddDate(0, 0, -1), got[i-1].EndDate)
	}
}

func TestGenerateClosedStatusSnapshot(t *testing.T) {
	now := date(2024, time.June, 15)
	got := Generate(date(2024, time.April, 1), date(2024, time.July, 31), now)
	require.Len(t, got, 4)

	require.True(t, got[0].IsClosed, "April ended before June 1")
	require.NotNil(t, got[0].ClosingDate)
	require.Equal(t, got[0].EndDate, *got[0].ClosingDate)

	require.True(t, got[1].IsClosed, "May ended before June 1")
	require.False(t, got[2].IsClosed, "June is the current month")
	require.Nil(t, got[2].ClosingDate)
	require.False(t, got[3].IsClosed, "July is in the future")
}

func TestBoundsDefaultWindowWithoutData(t *testing.T) {
	now := date(2024, time.June, 15)
	start, end := Bounds(nil, nil, now)
	require.Equal(t, date(2023, time.January, 1), start)
	require.Equal(t, date(2025, time.December, 31), end)
}

func TestBoundsFromObservedRange(t *testing.T) {
	now := date(2024, time.June, 15)
	min := date(2022, time.March, 17)
	max := date(2024, time.May, 2)
	start, end := Bounds(&min, &max, now)
	require.Equal(t, date(2022, time.March, 1), start)
	require.Equal(t, date(2025, time.December, 31), end, "forward buffer through next year")

	far := date(2027, time.February, 10)
	_, end = Bounds(&min, &far, now)
	require.Equal(t, far, end, "window extends to cover future-dated entries")
}

func TestResolvePeriodByTimestamp(t *testing.T) {
	now := date(2024, time.June, 15)
	ps := Generate(date(2024, time.January, 1), date(2024, time.March, 31), now)

	feb := date(2024, time.February, 14).Add(10 * time.Hour)
	p, ok := ResolvePeriod(ps, feb.Unix())
	require.True(t, ok)
	require.Equal(t, "2024-02", p.Name)

	// Last second of a month still belongs to that month.
	endOfJan := date(2024, time.February, 1).Add(-time.Second)
	p, ok = ResolvePeriod(ps, endOfJan.Unix())
	require.True(t, ok)
	require.Equal(t, "2024-01", p.Name)

	// Outside the calendar resolves to nothing.
	_, ok = ResolvePeriod(ps, date(2023, time.December, 31).Unix())
	require.False(t, ok)
}
