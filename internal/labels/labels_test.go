package labels

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	march1 int64 = 1519862400000 // 2018-03-01T00:00:00Z
	march2 int64 = 1519948800000 // 2018-03-02T00:00:00Z
	minute int64 = 60_000
)

func TestDateKey(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*3600)
	tests := []struct {
		ts       int64
		loc      *time.Location
		expected string
	}{
		{march1, time.UTC, "2018-3-1"},
		{march2 - 1, time.UTC, "2018-3-1"},
		{march2, time.UTC, "2018-3-2"},
		{march1 + 16*60*minute, sgt, "2018-3-2"},
		{1512086400000, time.UTC, "2017-12-1"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, DateKey(test.ts, test.loc))
	}
}

func TestIndexAddRow(t *testing.T) {
	ix := NewIndex(time.UTC)
	require.NoError(t, ix.AddTable([][]string{
		{"Mrt", "", "", itoa(march1 + 10*minute), itoa(march1 + 20*minute)},
		{"Bus", "", "", itoa(march1 + 30*minute), itoa(march1 + 40*minute)},
	}))

	d := ix.Date("2018-3-1")
	require.NotNil(t, d)
	assert.Equal(t, []int64{march1 + 10*minute, march1 + 20*minute, march1 + 30*minute, march1 + 40*minute}, d.Timestamps)
	assert.Equal(t, []string{"Mrt", "Mrt", "Bus", "Bus"}, d.Labels)
	assert.Equal(t, 1, ix.Dates())
}

func TestIndexRowSpanningTwoDates(t *testing.T) {
	ix := NewIndex(time.UTC)
	to, from := march2-10*minute, march2+10*minute
	require.NoError(t, ix.AddRow([]string{"Taxi", "", "", itoa(to), itoa(from)}))

	for _, date := range []string{"2018-3-1", "2018-3-2"} {
		d := ix.Date(date)
		require.NotNil(t, d, date)
		assert.Equal(t, []int64{to, from}, d.Timestamps)
		assert.Equal(t, []string{"Taxi", "Taxi"}, d.Labels)
	}
}

func TestIndexRejectsMalformedRows(t *testing.T) {
	ix := NewIndex(time.UTC)
	assert.Error(t, ix.AddRow([]string{"Mrt", "", ""}))
	assert.Error(t, ix.AddRow([]string{"Mrt", "", "", "abc", "123"}))
	assert.Error(t, ix.AddTable([][]string{{"Mrt", "", "", "1", "x"}}))
}

func TestResolve(t *testing.T) {
	ix := NewIndex(time.UTC)
	require.NoError(t, ix.AddTable([][]string{
		{"Mrt", "", "", itoa(march1 + 10*minute), itoa(march1 + 20*minute)},
		{"Bus", "", "", itoa(march1 + 30*minute), itoa(march1 + 40*minute)},
	}))
	r := NewResolver(ix, zap.NewNop())

	tests := []struct {
		name     string
		ts       int64
		expected string
		ok       bool
	}{
		{"exact first event", march1 + 10*minute, "Mrt", true},
		{"exact later event", march1 + 30*minute, "Bus", true},
		{"exact last event", march1 + 40*minute, "Bus", true},
		{"between first and second", march1 + 15*minute, "Mrt", true},
		{"between second and third", march1 + 25*minute, "Bus", true},
		{"before first event falls through to index 1", march1 + 5*minute, "Mrt", true},
		{"after last event", march1 + 50*minute, "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			label, ok := r.Resolve(test.ts)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.expected, label)
		})
	}
}

func TestResolveNeverMatchesIndexZeroByGreater(t *testing.T) {
	ix := NewIndex(time.UTC)
	// A row logged with its timestamps reversed leaves a larger value at index 0.
	require.NoError(t, ix.AddRow([]string{"Bus", "", "", itoa(march1 + 10*minute), itoa(march1 + 5*minute)}))
	r := NewResolver(ix, zap.NewNop())

	_, ok := r.Resolve(march1 + 7*minute)
	assert.False(t, ok)

	_, ok = r.Resolve(march1 + 1*minute)
	require.True(t, ok)

	label, ok := r.Resolve(march1 + 10*minute)
	require.True(t, ok)
	assert.Equal(t, "Bus", label)
}

func TestResolveScansInStoredOrder(t *testing.T) {
	ix := NewIndex(time.UTC)
	// Unsorted insertion: a later timestamp is stored before the exact match.
	require.NoError(t, ix.AddTable([][]string{
		{"Walking", "", "", itoa(march1 + 1*minute), itoa(march1 + 50*minute)},
		{"Mrt", "", "", itoa(march1 + 20*minute), itoa(march1 + 30*minute)},
	}))
	r := NewResolver(ix, zap.NewNop())

	label, ok := r.Resolve(march1 + 20*minute)
	require.True(t, ok)
	assert.Equal(t, "Walking", label, "first qualifying entry in stored order wins")

	label, ok = r.Resolve(march1 + 1*minute)
	require.True(t, ok)
	assert.Equal(t, "Walking", label)
}

func TestResolveMissingDateLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ix := NewIndex(time.UTC)
	require.NoError(t, ix.AddRow([]string{"Mrt", "", "", itoa(march1 + minute), itoa(march1 + 2*minute)}))
	r := NewResolver(ix, zap.New(core))

	for i := int64(0); i < 5; i++ {
		_, ok := r.Resolve(march2 + i*minute)
		assert.False(t, ok)
	}
	_, ok := r.Resolve(march2 + 24*60*minute)
	assert.False(t, ok)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "2018-3-2", logs.All()[0].ContextMap()["date"])
	assert.Equal(t, "2018-3-3", logs.All()[1].ContextMap()["date"])
	assert.ElementsMatch(t, []string{"2018-3-2", "2018-3-3"}, r.MissingDates())

	// A date that is indexed but has no qualifying event is silent.
	_, ok = r.Resolve(march1 + 5*minute)
	assert.False(t, ok)
	assert.Equal(t, 2, logs.Len())
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
