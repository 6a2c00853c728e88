package cluster

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(h int) time.Time {
	return time.Date(2025, 6, 10, h, 0, 0, 0, time.UTC)
}

func TestCluster_Empty(t *testing.T) {
	assert.Empty(t, Cluster(nil, 18*time.Hour))
}

func TestCluster_SimpleCluster(t *testing.T) {
	t0 := ts(9)
	t1 := ts(10)
	t2 := ts(15)
	records := []Record{
		{ID: "a", ShotAt: &t0},
		{ID: "b", ShotAt: &t1},
		{ID: "c", ShotAt: &t2},
	}

	buckets := Cluster(records, 18*time.Hour)
	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0].Records, 3)
	assert.Equal(t, t0, buckets[0].Start)
	assert.Equal(t, t2, buckets[0].End)
}

func TestCluster_GapSplit(t *testing.T) {
	t0 := ts(9)
	t1 := ts(10)
	t2 := time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC)
	t3 := time.Date(2025, 6, 11, 7, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "a", ShotAt: &t0},
		{ID: "b", ShotAt: &t1},
		{ID: "c", ShotAt: &t2},
		{ID: "d", ShotAt: &t3},
	}

	buckets := Cluster(records, 18*time.Hour)
	require.Len(t, buckets, 2)
	assert.Len(t, buckets[0].Records, 2)
	assert.Len(t, buckets[1].Records, 2)
}

func TestCluster_BoundaryEqualityGroupsTogether(t *testing.T) {
	t0 := ts(0)
	t1 := t0.Add(18 * time.Hour)
	records := []Record{{ID: "a", ShotAt: &t0}, {ID: "b", ShotAt: &t1}}

	buckets := Cluster(records, 18*time.Hour)
	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0].Records, 2)
}

func TestCluster_BoundaryGapPlusEpsilonSplits(t *testing.T) {
	t0 := ts(0)
	t1 := t0.Add(18*time.Hour + time.Second)
	records := []Record{{ID: "a", ShotAt: &t0}, {ID: "b", ShotAt: &t1}}

	buckets := Cluster(records, 18*time.Hour)
	require.Len(t, buckets, 2)
}

func TestCluster_UndatedPassthrough(t *testing.T) {
	t0 := ts(9)
	records := []Record{{ID: "a", ShotAt: &t0}, {ID: "b"}, {ID: "c"}}

	buckets := Cluster(records, 18*time.Hour)
	require.Len(t, buckets, 2)
	assert.NotNil(t, buckets[0].MeetingDate)
	assert.Nil(t, buckets[1].MeetingDate)
	assert.Len(t, buckets[1].Records, 2)
}

func TestCluster_StableUnderPermutation(t *testing.T) {
	base := []Record{}
	for i := 0; i < 20; i++ {
		tt := ts(0).Add(time.Duration(i) * time.Hour)
		base = append(base, Record{ID: string(rune('a' + i)), ShotAt: &tt})
	}

	want := Cluster(base, 18*time.Hour)

	shuffled := make([]Record, len(base))
	copy(shuffled, base)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	got := Cluster(shuffled, 18*time.Hour)

	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Start, got[i].Start)
		assert.Equal(t, want[i].End, got[i].End)
		assert.ElementsMatch(t, idsOf(want[i].Records), idsOf(got[i].Records))
	}
}

func TestCluster_DeterministicRepeat(t *testing.T) {
	t0 := ts(9)
	t1 := ts(10)
	records := []Record{{ID: "a", ShotAt: &t0}, {ID: "b", ShotAt: &t1}}

	first := Cluster(records, 18*time.Hour)
	second := Cluster(records, 18*time.Hour)
	assert.Equal(t, first, second)
}

func idsOf(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
