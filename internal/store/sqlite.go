package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/studydeck/exam-insights/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS papers (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	year       TEXT,
	raw_text   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	embedding       TEXT,
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
	member_ids          TEXT NOT NULL,
	years               TEXT NOT NULL,
	paper_ids           TEXT NOT NULL,
	frequency           INTEGER NOT NULL,
	total_marks         INTEGER NOT NULL DEFAULT 0,
	avg_marks           REAL NOT NULL DEFAULT 0,
	priority_tier       INTEGER NOT NULL,
	centroid            TEXT
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	paper_id   TEXT,
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_papers_subject ON papers(subject);
CREATE INDEX IF NOT EXISTS idx_questions_subject ON questions(subject);
CREATE INDEX IF NOT EXISTS idx_questions_paper_id ON questions(paper_id);
CREATE INDEX IF NOT EXISTS idx_clusters_subject ON clusters(subject);
CREATE INDEX IF NOT EXISTS idx_clusters_subject_tier ON clusters(subject, priority_tier);
CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePaper(ctx context.Context, paper *model.Paper) error {
	if paper.ID == "" {
		paper.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (id, subject, year, raw_text) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET subject = excluded.subject, year = excluded.year, raw_text = excluded.raw_text`,
		paper.ID, paper.Subject, paper.Year, paper.RawText,
	)
	return eris.Wrap(err, "sqlite: save paper")
}

func (s *SQLiteStore) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	var p model.Paper
	var year, rawText sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, subject, year, raw_text FROM papers WHERE id = ?`, id,
	).Scan(&p.ID, &p.Subject, &year, &rawText)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get paper %s", id)
	}
	p.Year = year.String
	p.RawText = rawText.String
	return &p, nil
}

func (s *SQLiteStore) ListPapers(ctx context.Context, subject string) ([]model.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, year, raw_text FROM papers WHERE subject = ? ORDER BY year, id`, subject,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list papers")
	}
	defer rows.Close()

	var papers []model.Paper
	for rows.Next() {
		var p model.Paper
		var year, rawText sql.NullString
		if err := rows.Scan(&p.ID, &p.Subject, &year, &rawText); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan paper")
		}
		p.Year = year.String
		p.RawText = rawText.String
		papers = append(papers, p)
	}
	return papers, eris.Wrap(rows.Err(), "sqlite: list papers iterate")
}

func (s *SQLiteStore) SaveQuestions(ctx context.Context, subject string, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions (id, paper_id, subject, year, number, text, marks, part, module_hint, normalized_text, embedding, question_type, difficulty, bloom_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			text = excluded.text, marks = excluded.marks, part = excluded.part,
			module_hint = excluded.module_hint, normalized_text = excluded.normalized_text,
			embedding = excluded.embedding, question_type = excluded.question_type,
			difficulty = excluded.difficulty, bloom_level = excluded.bloom_level`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert question")
	}
	defer stmt.Close()

	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		embJSON, err := marshalJSONColumn(q.Embedding)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal embedding for question %s", q.Number)
		}
		if _, err := stmt.ExecContext(ctx,
			q.ID, q.SourcePaperID, subject, q.SourceYear, q.Number, q.Text, q.Marks,
			string(q.Part), q.ModuleHint, q.NormalizedText, embJSON,
			q.QuestionType, q.Difficulty, q.BloomLevel,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert question %s", q.Number)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit questions")
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, subject string) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, paper_id, year, number, text, marks, part, module_hint, normalized_text, embedding, question_type, difficulty, bloom_level
		 FROM questions WHERE subject = ?
		 ORDER BY module_hint, year, number, id`, subject,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanSQLiteQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, eris.Wrap(rows.Err(), "sqlite: list questions iterate")
}

func scanSQLiteQuestion(rows *sql.Rows) (*model.Question, error) {
	var q model.Question
	var year, part, normalized, embedding, qtype, difficulty, bloom sql.NullString
	if err := rows.Scan(
		&q.ID, &q.SourcePaperID, &year, &q.Number, &q.Text, &q.Marks,
		&part, &q.ModuleHint, &normalized, &embedding, &qtype, &difficulty, &bloom,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan question")
	}
	q.SourceYear = year.String
	q.Part = model.Part(part.String)
	q.NormalizedText = normalized.String
	q.QuestionType = qtype.String
	q.Difficulty = difficulty.String
	q.BloomLevel = bloom.String
	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &q.Embedding); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal embedding")
		}
	}
	return &q, nil
}

func (s *SQLiteStore) ReplaceClusters(ctx context.Context, subject string, clusters []model.TopicCluster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE subject = ?`, subject); err != nil {
		return eris.Wrapf(err, "sqlite: delete clusters for %s", subject)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clusters (id, subject, module, topic_name, normalized_key, representative_text, member_ids, years, paper_ids, frequency, total_marks, avg_marks, priority_tier, centroid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert cluster")
	}
	defer stmt.Close()

	for i := range clusters {
		c := &clusters[i]
		row, err := clusterRow(c)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert cluster %s", c.TopicName)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit clusters")
}

func (s *SQLiteStore) ListClusters(ctx context.Context, subject string, tier model.PriorityTier) ([]model.TopicCluster, error) {
	query := `SELECT id, subject, module, topic_name, normalized_key, representative_text, member_ids, years, paper_ids, frequency, total_marks, avg_marks, priority_tier, centroid
		 FROM clusters WHERE subject = ?`
	args := []any{subject}
	if tier > 0 {
		query += ` AND priority_tier = ?`
		args = append(args, int(tier))
	}
	query += ` ORDER BY priority_tier, frequency DESC, total_marks DESC, topic_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clusters")
	}
	defer rows.Close()

	var clusters []model.TopicCluster
	for rows.Next() {
		var c model.TopicCluster
		var memberIDs, years, paperIDs string
		var centroid sql.NullString
		if err := rows.Scan(
			&c.ID, &c.Subject, &c.Module, &c.TopicName, &c.NormalizedKey, &c.RepresentativeText,
			&memberIDs, &years, &paperIDs, &c.FrequencyCount, &c.TotalMarks, &c.AvgMarks,
			&c.PriorityTier, &centroid,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cluster")
		}
		if err := unmarshalClusterColumns(&c, memberIDs, years, paperIDs, centroid.String); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, eris.Wrap(rows.Err(), "sqlite: list clusters iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, subject, paperID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, subject, paper_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, subject, paperID, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return runAffected(res, runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return runAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return runAffected(res, runID)
}

func runAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var paperID, errMsg, resultJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, subject, paper_id, status, error, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.Subject, &paperID, &r.Status, &errMsg, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.PaperID = paperID.String
	r.Error = errMsg.String
	if resultJSON.Valid && resultJSON.String != "" {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, subject, paper_id, status, error, result, created_at, updated_at FROM runs WHERE 1=1`
	args := []any{}

	if filter.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, filter.Subject)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var paperID, errMsg, resultJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.Subject, &paperID, &r.Status, &errMsg, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.PaperID = paperID.String
		r.Error = errMsg.String
		if resultJSON.Valid && resultJSON.String != "" {
			r.Result = &model.RunResult{}
			if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// marshalJSONColumn returns nil for empty slices so the column stays NULL,
// and a JSON string otherwise.
func marshalJSONColumn[T any](v []T) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// clusterRow builds the ordered value list shared by both stores'
// cluster inserts.
func clusterRow(c *model.TopicCluster) ([]any, error) {
	memberIDs, err := json.Marshal(c.MemberQuestionIDs)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal member ids")
	}
	years, err := json.Marshal(c.YearsAppeared)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal years")
	}
	paperIDs, err := json.Marshal(c.PaperIDsAppeared)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal paper ids")
	}
	centroid, err := marshalJSONColumn(c.EmbeddingCentroid)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal centroid")
	}
	return []any{
		c.ID, c.Subject, c.Module, c.TopicName, c.NormalizedKey, c.RepresentativeText,
		string(memberIDs), string(years), string(paperIDs),
		c.FrequencyCount, c.TotalMarks, c.AvgMarks, int(c.PriorityTier), centroid,
	}, nil
}

func unmarshalClusterColumns(c *model.TopicCluster, memberIDs, years, paperIDs, centroid string) error {
	if err := json.Unmarshal([]byte(memberIDs), &c.MemberQuestionIDs); err != nil {
		return eris.Wrap(err, "store: unmarshal member ids")
	}
	if err := json.Unmarshal([]byte(years), &c.YearsAppeared); err != nil {
		return eris.Wrap(err, "store: unmarshal years")
	}
	if err := json.Unmarshal([]byte(paperIDs), &c.PaperIDsAppeared); err != nil {
		return eris.Wrap(err, "store: unmarshal paper ids")
	}
	if centroid != "" {
		if err := json.Unmarshal([]byte(centroid), &c.EmbeddingCentroid); err != nil {
			return eris.Wrap(err, "store: unmarshal centroid")
		}
	}
	return nil
}
