package database

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgtype/pgxtype"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Migration struct {
	id   int
	name string
	sql  string
}

func NewMigration(id int, name string, sql string) Migration {
	return Migration{id: id, name: name, sql: sql}
}

func UpdateDatabase(ctx context.Context, db pgxtype.Querier, migrations []Migration) error {
	log.Info("Updating postgres...")
	version, err := readVersion(ctx, db)
	if err != nil {
		return err
	}
	log.Infof("Current version %v", version)

	for _, m := range migrations {
		if m.id > version {
			log.Infof("Applying migration %s", m.name)
			_, err := db.Exec(ctx, m.sql)
			if err != nil {
				return errors.Wrapf(err, "applying migration %s", m.name)
			}

			version = m.id
			err = setVersion(ctx, db, version)
			if err != nil {
				return err
			}
		}
	}
	log.Info("Database updated.")
	return nil
}

func readVersion(ctx context.Context, db pgxtype.Querier) (int, error) {
	_, err := db.Exec(ctx,
		`CREATE SEQUENCE IF NOT EXISTS database_version START WITH 0 MINVALUE 0;`)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	result, err := db.Query(ctx,
		`SELECT last_value FROM database_version`)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer result.Close()
	var version int
	result.Next()
	err = result.Scan(&version)
	return version, errors.WithStack(err)
}

func setVersion(ctx context.Context, db pgxtype.Querier, version int) error {
	_, err := db.Exec(ctx, `SELECT setval('database_version', $1)`, version)
	return errors.WithStack(err)
}

// ReadMigrations loads every .sql file under basePath. Files must be named <id>_<description>.sql and are
// returned ordered by id.
func ReadMigrations(fsys fs.FS, basePath string) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, basePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	migrations := make([]Migration, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		id, err := strconv.Atoi(strings.Split(f.Name(), "_")[0])
		if err != nil {
			return nil, errors.Wrapf(err, "migration %s is not prefixed with a numeric id", f.Name())
		}
		sql, err := fs.ReadFile(fsys, path.Join(basePath, f.Name()))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		migrations = append(migrations, Migration{
			id:   id,
			name: f.Name(),
			sql:  string(sql),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].id < migrations[j].id })
	return migrations, nil
}
