package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/studydeck/exam-insights/internal/db"
	"github.com/studydeck/exam-insights/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, subject, paper_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_run":      `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":          `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":           `SELECT id, subject, paper_id, status, error, result, created_at, updated_at FROM runs WHERE id = $1`,
	"get_paper":         `SELECT id, subject, year, raw_text FROM papers WHERE id = $1`,
	"upsert_paper":      `INSERT INTO papers (id, subject, year, raw_text) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO UPDATE SET subject = EXCLUDED.subject, year = EXCLUDED.year, raw_text = EXCLUDED.raw_text`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS papers (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject    TEXT NOT NULL,
	year       TEXT,
	raw_text   TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS questions (
	id              TEXT PRIMARY KEY,
	paper_id        TEXT NOT NULL REFERENCES papers(id),
	subject         TEXT NOT NULL,
	year            TEXT,
	number          TEXT NOT NULL,
	text            TEXT NOT NULL,
	marks           INTEGER NOT NULL DEFAULT 0,
	part            TEXT NOT NULL DEFAULT '',
	module_hint     INTEGER NOT NULL DEFAULT 0,
	normalized_text TEXT,
	embedding       JSONB,
	question_type   TEXT,
	difficulty      TEXT,
	bloom_level     TEXT
);

CREATE TABLE IF NOT EXISTS clusters (
	id                  TEXT PRIMARY KEY,
	subject             TEXT NOT NULL,
	module              INTEGER NOT NULL DEFAULT 0,
	topic_name          TEXT NOT NULL,
	normalized_key      TEXT NOT NULL,
	representative_text TEXT NOT NULL,
	member_ids          JSONB NOT NULL,
	years               JSONB NOT NULL,
	paper_ids           JSONB NOT NULL,
	frequency           INTEGER NOT NULL,
	total_marks         INTEGER NOT NULL DEFAULT 0,
	avg_marks           DOUBLE PRECISION NOT NULL DEFAULT 0,
	priority_tier       INTEGER NOT NULL,
	centroid            JSONB
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject    TEXT NOT NULL,
	paper_id   TEXT,
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_papers_subject ON papers(subject);
CREATE INDEX IF NOT EXISTS idx_questions_subject ON questions(subject);
CREATE INDEX IF NOT EXISTS idx_questions_paper_id ON questions(paper_id);
CREATE INDEX IF NOT EXISTS idx_clusters_subject ON clusters(subject);
CREATE INDEX IF NOT EXISTS idx_clusters_subject_tier ON clusters(subject, priority_tier);
CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SavePaper(ctx context.Context, paper *model.Paper) error {
	if paper.ID == "" {
		paper.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO papers (id, subject, year, raw_text) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET subject = EXCLUDED.subject, year = EXCLUDED.year, raw_text = EXCLUDED.raw_text`,
		paper.ID, paper.Subject, paper.Year, paper.RawText,
	)
	return eris.Wrap(err, "postgres: save paper")
}

func (s *PostgresStore) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	var p model.Paper
	var year, rawText *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, subject, year, raw_text FROM papers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Subject, &year, &rawText)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get paper %s", id)
	}
	if year != nil {
		p.Year = *year
	}
	if rawText != nil {
		p.RawText = *rawText
	}
	return &p, nil
}

func (s *PostgresStore) ListPapers(ctx context.Context, subject string) ([]model.Paper, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject, year, raw_text FROM papers WHERE subject = $1 ORDER BY year, id`, subject,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list papers")
	}
	defer rows.Close()

	var papers []model.Paper
	for rows.Next() {
		var p model.Paper
		var year, rawText *string
		if err := rows.Scan(&p.ID, &p.Subject, &year, &rawText); err != nil {
			return nil, eris.Wrap(err, "postgres: scan paper")
		}
		if year != nil {
			p.Year = *year
		}
		if rawText != nil {
			p.RawText = *rawText
		}
		papers = append(papers, p)
	}
	return papers, eris.Wrap(rows.Err(), "postgres: list papers iterate")
}

// questionColumns is the insert column order shared by SaveQuestions and
// the bulk upsert helper.
var questionColumns = []string{
	"id", "paper_id", "subject", "year", "number", "text", "marks", "part",
	"module_hint", "normalized_text", "embedding", "question_type", "difficulty", "bloom_level",
}

func (s *PostgresStore) SaveQuestions(ctx context.Context, subject string, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		var embJSON []byte
		if q.HasEmbedding() {
			b, err := json.Marshal(q.Embedding)
			if err != nil {
				return eris.Wrapf(err, "postgres: marshal embedding for question %s", q.Number)
			}
			embJSON = b
		}
		rows = append(rows, []any{
			q.ID, q.SourcePaperID, subject, q.SourceYear, q.Number, q.Text, q.Marks,
			string(q.Part), q.ModuleHint, q.NormalizedText, embJSON,
			q.QuestionType, q.Difficulty, q.BloomLevel,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "questions",
		Columns:      questionColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: save questions")
}

func (s *PostgresStore) ListQuestions(ctx context.Context, subject string) ([]model.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, paper_id, year, number, text, marks, part, module_hint, normalized_text, embedding, question_type, difficulty, bloom_level
		 FROM questions WHERE subject = $1
		 ORDER BY module_hint, year, number, id`, subject,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var year, part, normalized, qtype, difficulty, bloom *string
		var embJSON []byte
		if err := rows.Scan(
			&q.ID, &q.SourcePaperID, &year, &q.Number, &q.Text, &q.Marks,
			&part, &q.ModuleHint, &normalized, &embJSON, &qtype, &difficulty, &bloom,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan question")
		}
		if year != nil {
			q.SourceYear = *year
		}
		if part != nil {
			q.Part = model.Part(*part)
		}
		if normalized != nil {
			q.NormalizedText = *normalized
		}
		if qtype != nil {
			q.QuestionType = *qtype
		}
		if difficulty != nil {
			q.Difficulty = *difficulty
		}
		if bloom != nil {
			q.BloomLevel = *bloom
		}
		if len(embJSON) > 0 {
			if err := json.Unmarshal(embJSON, &q.Embedding); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal embedding")
			}
		}
		questions = append(questions, q)
	}
	return questions, eris.Wrap(rows.Err(), "postgres: list questions iterate")
}

var clusterColumns = []string{
	"id", "subject", "module", "topic_name", "normalized_key", "representative_text",
	"member_ids", "years", "paper_ids", "frequency", "total_marks", "avg_marks",
	"priority_tier", "centroid",
}

func (s *PostgresStore) ReplaceClusters(ctx context.Context, subject string, clusters []model.TopicCluster) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM clusters WHERE subject = $1`, subject); err != nil {
		return eris.Wrapf(err, "postgres: delete clusters for %s", subject)
	}

	rows := make([][]any, 0, len(clusters))
	for i := range clusters {
		row, err := clusterRow(&clusters[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	// pgx.Tx satisfies db.Pool, so the COPY rides inside this transaction.
	if _, err := db.CopyFrom(ctx, tx, "clusters", clusterColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: insert clusters for %s", subject)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit clusters")
}

func (s *PostgresStore) ListClusters(ctx context.Context, subject string, tier model.PriorityTier) ([]model.TopicCluster, error) {
	query := `SELECT id, subject, module, topic_name, normalized_key, representative_text, member_ids, years, paper_ids, frequency, total_marks, avg_marks, priority_tier, centroid
		 FROM clusters WHERE subject = $1`
	args := []any{subject}
	if tier > 0 {
		query += ` AND priority_tier = $2`
		args = append(args, int(tier))
	}
	query += ` ORDER BY priority_tier, frequency DESC, total_marks DESC, topic_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clusters")
	}
	defer rows.Close()

	var clusters []model.TopicCluster
	for rows.Next() {
		var c model.TopicCluster
		var memberIDs, years, paperIDs, centroid []byte
		if err := rows.Scan(
			&c.ID, &c.Subject, &c.Module, &c.TopicName, &c.NormalizedKey, &c.RepresentativeText,
			&memberIDs, &years, &paperIDs, &c.FrequencyCount, &c.TotalMarks, &c.AvgMarks,
			&c.PriorityTier, &centroid,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cluster")
		}
		if err := unmarshalClusterColumns(&c, string(memberIDs), string(years), string(paperIDs), string(centroid)); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, eris.Wrap(rows.Err(), "postgres: list clusters iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, subject, paperID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, subject, paper_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, subject, paperID, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Subject:   subject,
		PaperID:   paperID,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var paperID, errMsg *string
	var resultJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, subject, paper_id, status, error, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Subject, &paperID, &r.Status, &errMsg, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("run not found: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if paperID != nil {
		r.PaperID = *paperID
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, subject, paper_id, status, error, result, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Subject != "" {
		query += fmt.Sprintf(` AND subject = $%d`, argIdx)
		args = append(args, filter.Subject)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var paperID, errMsg *string
		var resultJSON []byte

		if err := rows.Scan(&r.ID, &r.Subject, &paperID, &r.Status, &errMsg, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if paperID != nil {
			r.PaperID = *paperID
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		if len(resultJSON) > 0 {
			r.Result = &model.RunResult{}
			if err := json.Unmarshal(resultJSON, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
