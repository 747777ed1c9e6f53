package report

import (
	"encoding/json"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

const (
	reportsByRunIdKey = "DeliveryReport:ByRunId"
	reportsByStartKey = "DeliveryReport:ByStart"
)

type Store interface {
	Save(report *DeliveryReport) error
	Get(runId string) (*DeliveryReport, error)
	// Recent returns up to n reports, newest first.
	Recent(n int64) ([]*DeliveryReport, error)
}

// RedisStore keeps every report in a hash keyed by run id, indexed by start time in a sorted set.
type RedisStore struct {
	Db redis.UniversalClient
}

func NewRedisStore(db redis.UniversalClient) *RedisStore {
	return &RedisStore{Db: db}
}

func (s *RedisStore) Save(report *DeliveryReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return errors.WithStack(err)
	}
	pipe := s.Db.TxPipeline()
	pipe.HSet(reportsByRunIdKey, report.RunId, data)
	pipe.ZAdd(reportsByStartKey, redis.Z{
		Score:  float64(report.Start.UnixNano()),
		Member: report.RunId,
	})
	_, err = pipe.Exec()
	return errors.WithMessagef(err, "error saving report for run %s", report.RunId)
}

func (s *RedisStore) Get(runId string) (*DeliveryReport, error) {
	data, err := s.Db.HGet(reportsByRunIdKey, runId).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "error loading report for run %s", runId)
	}
	return decode(data)
}

func (s *RedisStore) Recent(n int64) ([]*DeliveryReport, error) {
	if n <= 0 {
		return nil, nil
	}
	runIds, err := s.Db.ZRevRange(reportsByStartKey, 0, n-1).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(runIds) == 0 {
		return nil, nil
	}
	values, err := s.Db.HMGet(reportsByRunIdKey, runIds...).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	reports := make([]*DeliveryReport, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decode([]byte(data))
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func decode(data []byte) (*DeliveryReport, error) {
	r := &DeliveryReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, errors.WithStack(err)
	}
	return r, nil
}
