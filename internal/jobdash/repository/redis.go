package repository

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/go-redis/redis"
	pool "github.com/jolestar/go-commons-pool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/G-Research/jobdash/internal/common/compress"
	"github.com/G-Research/jobdash/internal/jobdash/model"
)

const (
	jobObjectPrefix = "Job:"
	jobRunsPrefix   = "Job:Runs:"
)

type redisJob struct {
	// Zlib compressed spec.
	Spec      []byte    `json:"spec"`
	CreatedAt time.Time `json:"createdAt"`
}

// RedisJobRepository stores each job as a single compressed record and its runs as a list, in creation
// order.
type RedisJobRepository struct {
	db               redis.UniversalClient
	compressorPool   *pool.ObjectPool
	decompressorPool *pool.ObjectPool
	clock            clock.PassiveClock
}

func NewRedisJobRepository(db redis.UniversalClient) *RedisJobRepository {
	// Default pool config with more headroom: a max of 100 rather than 8 and a min of 10 rather than 0.
	poolConfig := pool.ObjectPoolConfig{
		MaxTotal:                 100,
		MaxIdle:                  50,
		MinIdle:                  10,
		BlockWhenExhausted:       true,
		MinEvictableIdleTime:     30 * time.Minute,
		SoftMinEvictableIdleTime: math.MaxInt64,
		TimeBetweenEvictionRuns:  0,
		NumTestsPerEvictionRun:   10,
	}

	compressorPool := pool.NewObjectPool(context.Background(), pool.NewPooledObjectFactorySimple(
		func(context.Context) (interface{}, error) {
			return compress.NewZlibCompressor(1024)
		}), &poolConfig)

	decompressorPool := pool.NewObjectPool(context.Background(), pool.NewPooledObjectFactorySimple(
		func(context.Context) (interface{}, error) {
			return compress.NewZlibDecompressor(), nil
		}), &poolConfig)

	return &RedisJobRepository{
		db:               db,
		compressorPool:   compressorPool,
		decompressorPool: decompressorPool,
		clock:            clock.RealClock{},
	}
}

func (r *RedisJobRepository) CreateJob(ctx context.Context, job *model.Job) error {
	spec, err := r.compress(ctx, job.Spec)
	if err != nil {
		return err
	}
	data, err := json.Marshal(&redisJob{Spec: spec, CreatedAt: job.CreatedAt})
	if err != nil {
		return errors.WithStack(err)
	}
	created, err := r.db.SetNX(jobObjectPrefix+job.JobSpecId, data, 0).Result()
	if err != nil {
		return errors.Wrapf(err, "storing job %s", job.JobSpecId)
	}
	if !created {
		return errors.WithStack(jobAlreadyExists(job.JobSpecId))
	}
	return nil
}

func (r *RedisJobRepository) GetJob(ctx context.Context, jobSpecId string) (*model.Job, error) {
	pipe := r.db.Pipeline()
	jobCmd := pipe.Get(jobObjectPrefix + jobSpecId)
	runsCmd := pipe.LRange(jobRunsPrefix+jobSpecId, 0, -1)
	// Exec reports redis.Nil for the missing job, which is checked on the command itself.
	if _, err := pipe.Exec(); err != nil && err != redis.Nil {
		return nil, errors.Wrapf(err, "reading job %s", jobSpecId)
	}

	data, err := jobCmd.Bytes()
	if err == redis.Nil {
		return nil, errors.WithStack(jobNotFound(jobSpecId))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading job %s", jobSpecId)
	}
	var stored redisJob
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrapf(err, "decoding job %s", jobSpecId)
	}
	spec, err := r.decompress(ctx, stored.Spec)
	if err != nil {
		return nil, err
	}

	var runs []*model.Run
	for _, runData := range runsCmd.Val() {
		run := &model.Run{}
		if err := json.Unmarshal([]byte(runData), run); err != nil {
			return nil, errors.Wrapf(err, "decoding run of job %s", jobSpecId)
		}
		runs = append(runs, run)
	}

	return &model.Job{
		JobSpecId: jobSpecId,
		Spec:      spec,
		CreatedAt: stored.CreatedAt.UTC(),
		Runs:      runs,
	}, nil
}

func (r *RedisJobRepository) CreateJobRun(_ context.Context, jobSpecId string) (*model.Run, error) {
	// Jobs are never deleted, so a job seen here still exists when the run is appended.
	exists, err := r.db.Exists(jobObjectPrefix + jobSpecId).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "reading job %s", jobSpecId)
	}
	if exists == 0 {
		return nil, errors.WithStack(jobNotFound(jobSpecId))
	}

	run := newRun(jobSpecId, r.clock)
	data, err := json.Marshal(run)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := r.db.RPush(jobRunsPrefix+jobSpecId, data).Err(); err != nil {
		return nil, errors.Wrapf(err, "storing run of job %s", jobSpecId)
	}
	return run, nil
}

// Check pings redis.
func (r *RedisJobRepository) Check() error {
	return errors.WithStack(r.db.Ping().Err())
}

func (r *RedisJobRepository) compress(ctx context.Context, data []byte) ([]byte, error) {
	compressor, err := r.compressorPool.BorrowObject(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func(compressorPool *pool.ObjectPool, ctx context.Context, object interface{}) {
		err := compressorPool.ReturnObject(ctx, object)
		if err != nil {
			log.WithError(err).Errorf("Error returning compressor to pool")
		}
	}(r.compressorPool, ctx, compressor)

	compressed, err := compressor.(compress.Compressor).Compress(data)
	return compressed, errors.WithStack(err)
}

func (r *RedisJobRepository) decompress(ctx context.Context, data []byte) ([]byte, error) {
	decompressor, err := r.decompressorPool.BorrowObject(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func(decompressorPool *pool.ObjectPool, ctx context.Context, object interface{}) {
		err := decompressorPool.ReturnObject(ctx, object)
		if err != nil {
			log.WithError(err).Errorf("Error returning decompressor to pool")
		}
	}(r.decompressorPool, ctx, decompressor)

	decompressed, err := decompressor.(compress.Decompressor).Decompress(data)
	return decompressed, errors.WithStack(err)
}
