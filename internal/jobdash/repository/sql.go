package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	lru "github.com/hashicorp/golang-lru"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/G-Research/jobdash/internal/common/compress"
	"github.com/G-Research/jobdash/internal/jobdash/model"
)

var (
	dialect = goqu.Dialect("postgres")

	jobTable    = goqu.T("job")
	jobRunTable = goqu.T("job_run")

	col_jobSpecId = goqu.C("job_spec_id")
	col_spec      = goqu.C("spec")
	col_created   = goqu.C("created")
	col_runId     = goqu.C("run_id")
	col_status    = goqu.C("status")
)

// SqlJobRepository stores jobs in postgres. Specs are stored zlib-compressed; decompressed specs are kept
// in an LRU cache keyed by job, since a stored spec never changes.
type SqlJobRepository struct {
	db           *pgxpool.Pool
	compressor   compress.Compressor
	decompressor compress.Decompressor
	specCache    *lru.Cache
	clock        clock.PassiveClock
}

func NewSqlJobRepository(db *pgxpool.Pool, specCacheSize int) (*SqlJobRepository, error) {
	specCache, err := lru.New(specCacheSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &SqlJobRepository{
		db:           db,
		compressor:   compress.NewThreadSafeZlibCompressor(1024),
		decompressor: compress.NewThreadSafeZlibDecompressor(),
		specCache:    specCache,
		clock:        clock.RealClock{},
	}, nil
}

func (r *SqlJobRepository) CreateJob(ctx context.Context, job *model.Job) error {
	spec, err := r.compressor.Compress(job.Spec)
	if err != nil {
		return errors.WithStack(err)
	}
	sql, args, err := insertJobSql(job.JobSpecId, spec, job.CreatedAt)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if hasErrorCode(err, pgerrcode.UniqueViolation) {
			return errors.WithStack(jobAlreadyExists(job.JobSpecId))
		}
		return errors.Wrapf(err, "inserting job %s", job.JobSpecId)
	}
	r.specCache.Add(job.JobSpecId, job.Spec)
	return nil
}

func (r *SqlJobRepository) GetJob(ctx context.Context, jobSpecId string) (*model.Job, error) {
	sql, args, err := selectJobSql(jobSpecId)
	if err != nil {
		return nil, err
	}
	var storedSpec []byte
	var created time.Time
	err = r.db.QueryRow(ctx, sql, args...).Scan(&storedSpec, &created)
	if err == pgx.ErrNoRows {
		return nil, errors.WithStack(jobNotFound(jobSpecId))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading job %s", jobSpecId)
	}

	spec, err := r.spec(jobSpecId, storedSpec)
	if err != nil {
		return nil, err
	}
	runs, err := r.getRuns(ctx, jobSpecId)
	if err != nil {
		return nil, err
	}
	return &model.Job{
		JobSpecId: jobSpecId,
		Spec:      spec,
		CreatedAt: created.UTC(),
		Runs:      runs,
	}, nil
}

func (r *SqlJobRepository) CreateJobRun(ctx context.Context, jobSpecId string) (*model.Run, error) {
	run := newRun(jobSpecId, r.clock)
	sql, args, err := insertRunSql(run)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if hasErrorCode(err, pgerrcode.ForeignKeyViolation) {
			return nil, errors.WithStack(jobNotFound(jobSpecId))
		}
		return nil, errors.Wrapf(err, "inserting run for job %s", jobSpecId)
	}
	return run, nil
}

// Check pings the database.
func (r *SqlJobRepository) Check() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.WithStack(r.db.Ping(ctx))
}

func (r *SqlJobRepository) spec(jobSpecId string, stored []byte) (json.RawMessage, error) {
	if cached, ok := r.specCache.Get(jobSpecId); ok {
		return cached.(json.RawMessage), nil
	}
	spec, err := r.decompressor.Decompress(stored)
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing spec of job %s", jobSpecId)
	}
	r.specCache.Add(jobSpecId, json.RawMessage(spec))
	return spec, nil
}

func (r *SqlJobRepository) getRuns(ctx context.Context, jobSpecId string) ([]*model.Run, error) {
	sql, args, err := selectRunsSql(jobSpecId)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading runs of job %s", jobSpecId)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run := &model.Run{JobSpecId: jobSpecId}
		if err := rows.Scan(&run.RunId, &run.Status, &run.CreatedAt); err != nil {
			return nil, errors.WithStack(err)
		}
		run.CreatedAt = run.CreatedAt.UTC()
		runs = append(runs, run)
	}
	return runs, errors.WithStack(rows.Err())
}

func insertJobSql(jobSpecId string, spec []byte, created time.Time) (string, []interface{}, error) {
	sql, args, err := dialect.
		Insert(jobTable).
		Rows(goqu.Record{
			"job_spec_id": jobSpecId,
			"spec":        spec,
			"created":     created,
		}).
		Prepared(true).
		ToSQL()
	return sql, args, errors.WithStack(err)
}

func selectJobSql(jobSpecId string) (string, []interface{}, error) {
	sql, args, err := dialect.
		From(jobTable).
		Select(col_spec, col_created).
		Where(col_jobSpecId.Eq(jobSpecId)).
		Prepared(true).
		ToSQL()
	return sql, args, errors.WithStack(err)
}

func selectRunsSql(jobSpecId string) (string, []interface{}, error) {
	sql, args, err := dialect.
		From(jobRunTable).
		Select(col_runId, col_status, col_created).
		Where(col_jobSpecId.Eq(jobSpecId)).
		Order(col_created.Asc(), col_runId.Asc()).
		Prepared(true).
		ToSQL()
	return sql, args, errors.WithStack(err)
}

func insertRunSql(run *model.Run) (string, []interface{}, error) {
	sql, args, err := dialect.
		Insert(jobRunTable).
		Rows(goqu.Record{
			"run_id":      run.RunId,
			"job_spec_id": run.JobSpecId,
			"status":      run.Status,
			"created":     run.CreatedAt,
		}).
		Prepared(true).
		ToSQL()
	return sql, args, errors.WithStack(err)
}

func hasErrorCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
