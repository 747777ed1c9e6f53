package report

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_SaveAndGet(t *testing.T) {
	withStore(t, func(s *RedisStore) {
		r := makeReport("run-1", time.Unix(1000, 0).UTC())
		require.NoError(t, s.Save(r))

		loaded, err := s.Get("run-1")
		require.NoError(t, err)
		assert.Equal(t, r, loaded)
	})
}

func TestRedisStore_GetMissing(t *testing.T) {
	withStore(t, func(s *RedisStore) {
		loaded, err := s.Get("nope")
		assert.NoError(t, err)
		assert.Nil(t, loaded)
	})
}

func TestRedisStore_SaveOverwrites(t *testing.T) {
	withStore(t, func(s *RedisStore) {
		r := makeReport("run-1", time.Unix(1000, 0).UTC())
		require.NoError(t, s.Save(r))
		r.Validated = 42
		require.NoError(t, s.Save(r))

		loaded, err := s.Get("run-1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), loaded.Validated)

		recent, err := s.Recent(10)
		require.NoError(t, err)
		assert.Len(t, recent, 1)
	})
}

func TestRedisStore_Recent(t *testing.T) {
	withStore(t, func(s *RedisStore) {
		base := time.Unix(1000, 0).UTC()
		require.NoError(t, s.Save(makeReport("old", base)))
		require.NoError(t, s.Save(makeReport("newest", base.Add(2*time.Minute))))
		require.NoError(t, s.Save(makeReport("middle", base.Add(time.Minute))))

		recent, err := s.Recent(2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "newest", recent[0].RunId)
		assert.Equal(t, "middle", recent[1].RunId)

		recent, err = s.Recent(0)
		assert.NoError(t, err)
		assert.Empty(t, recent)
	})
}

func makeReport(runId string, start time.Time) *DeliveryReport {
	return &DeliveryReport{
		Mode:          "UDP",
		RunId:         runId,
		Start:         start,
		End:           start.Add(time.Minute),
		Duration:      time.Minute,
		TotalRequests: 100,
		Threads:       2,
		Created:       100,
		Sent:          100,
		Validated:     99,
		DeliveryRatio: 99,
		DrainStatus:   "drained",
	}
}

func withStore(t *testing.T, action func(s *RedisStore)) {
	db, err := miniredis.Run()
	require.NoError(t, err)
	defer db.Close()

	client := redis.NewClient(&redis.Options{Addr: db.Addr()})
	defer client.Close()

	action(NewRedisStore(client))
}
