// Package sqlite implements the dictionary store on top of a pure-Go,
// cgo-free SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/internalerr"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
)

type sqliteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open opens a SQLite database with WAL mode enabled and ensures the
// schema exists.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	s.closed.Store(true)
	return s.db.Close()
}

// ensureOpen rejects operations on a closed store. Closing the store
// while a lookup is pending is an error surfaced to that lookup's
// caller, not a silent empty result.
func (s *sqliteStore) ensureOpen() error {
	if s.closed.Load() {
		return internalerr.New(internalerr.KindStoreUnavailable, "store is closed")
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS dictionaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT UNIQUE NOT NULL,
	revision TEXT NOT NULL,
	import_date_unix INTEGER NOT NULL,
	term_count INTEGER DEFAULT 0,
	term_meta_count INTEGER DEFAULT 0,
	kanji_count INTEGER DEFAULT 0,
	kanji_meta_count INTEGER DEFAULT 0,
	tag_count INTEGER DEFAULT 0,
	media_count INTEGER DEFAULT 0,
	stylesheet TEXT DEFAULT '',
	is_updatable INTEGER DEFAULT 0,
	index_url TEXT DEFAULT '',
	download_url TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS terms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary TEXT NOT NULL,
	expression TEXT NOT NULL,
	reading TEXT NOT NULL,
	expression_reverse TEXT NOT NULL DEFAULT '',
	reading_reverse TEXT NOT NULL DEFAULT '',
	definition_tags TEXT NOT NULL DEFAULT '',
	term_tags TEXT NOT NULL DEFAULT '',
	rules TEXT NOT NULL DEFAULT '',
	score REAL NOT NULL DEFAULT 0,
	glossary TEXT NOT NULL DEFAULT '[]',
	sequence INTEGER
);
CREATE INDEX IF NOT EXISTS idx_terms_dictionary ON terms(dictionary);
CREATE INDEX IF NOT EXISTS idx_terms_expression ON terms(expression);
CREATE INDEX IF NOT EXISTS idx_terms_reading ON terms(reading);
CREATE INDEX IF NOT EXISTS idx_terms_sequence ON terms(sequence);
CREATE INDEX IF NOT EXISTS idx_terms_expression_reverse ON terms(expression_reverse);
CREATE INDEX IF NOT EXISTS idx_terms_reading_reverse ON terms(reading_reverse);

CREATE TABLE IF NOT EXISTS term_meta (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary TEXT NOT NULL,
	expression TEXT NOT NULL,
	mode TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_term_meta_dictionary ON term_meta(dictionary);
CREATE INDEX IF NOT EXISTS idx_term_meta_expression ON term_meta(expression);

CREATE TABLE IF NOT EXISTS kanji (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary TEXT NOT NULL,
	character TEXT NOT NULL,
	onyomi TEXT NOT NULL DEFAULT '',
	kunyomi TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	meanings TEXT NOT NULL DEFAULT '[]',
	stats TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_kanji_dictionary ON kanji(dictionary);
CREATE INDEX IF NOT EXISTS idx_kanji_character ON kanji(character);

CREATE TABLE IF NOT EXISTS kanji_meta (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary TEXT NOT NULL,
	character TEXT NOT NULL,
	mode TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_kanji_meta_dictionary ON kanji_meta(dictionary);
CREATE INDEX IF NOT EXISTS idx_kanji_meta_character ON kanji_meta(character);

CREATE TABLE IF NOT EXISTS tag_meta (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary TEXT NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	score REAL NOT NULL DEFAULT 0,
	UNIQUE(dictionary, name)
);
CREATE INDEX IF NOT EXISTS idx_tag_meta_dictionary ON tag_meta(dictionary);
CREATE INDEX IF NOT EXISTS idx_tag_meta_name ON tag_meta(name);

CREATE TABLE IF NOT EXISTS media (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary TEXT NOT NULL,
	path TEXT NOT NULL,
	media_type TEXT NOT NULL DEFAULT '',
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	content BLOB,
	UNIQUE(dictionary, path)
);
CREATE INDEX IF NOT EXISTS idx_media_dictionary ON media(dictionary);
CREATE INDEX IF NOT EXISTS idx_media_path ON media(path);
`

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *sqliteStore) CreateDictionary(ctx context.Context, d store.Dictionary) (int64, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	const stmt = `
INSERT INTO dictionaries (title, revision, import_date_unix, stylesheet, is_updatable, index_url, download_url)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(title) DO UPDATE SET
	revision=excluded.revision,
	import_date_unix=excluded.import_date_unix,
	stylesheet=excluded.stylesheet,
	is_updatable=excluded.is_updatable,
	index_url=excluded.index_url,
	download_url=excluded.download_url
RETURNING id;
`
	var id int64
	err := s.db.QueryRowContext(ctx, stmt, d.Title, d.Revision, d.ImportDateUnix, d.Stylesheet, d.IsUpdatable, d.IndexURL, d.DownloadURL).Scan(&id)
	return id, err
}

func (s *sqliteStore) GetDictionary(ctx context.Context, title string) (store.Dictionary, bool, error) {
	if err := s.ensureOpen(); err != nil {
		return store.Dictionary{}, false, err
	}
	const q = `
SELECT id, title, revision, import_date_unix, term_count, term_meta_count,
       kanji_count, kanji_meta_count, tag_count, media_count, stylesheet,
       is_updatable, index_url, download_url
FROM dictionaries WHERE title = ?;
`
	var d store.Dictionary
	err := s.db.QueryRowContext(ctx, q, title).Scan(
		&d.ID, &d.Title, &d.Revision, &d.ImportDateUnix, &d.TermCount, &d.TermMetaCount,
		&d.KanjiCount, &d.KanjiMetaCount, &d.TagCount, &d.MediaCount, &d.Stylesheet,
		&d.IsUpdatable, &d.IndexURL, &d.DownloadURL,
	)
	if err == sql.ErrNoRows {
		return store.Dictionary{}, false, nil
	}
	if err != nil {
		return store.Dictionary{}, false, err
	}
	return d, true, nil
}

func (s *sqliteStore) ListDictionaries(ctx context.Context) ([]store.Dictionary, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	const q = `
SELECT id, title, revision, import_date_unix, term_count, term_meta_count,
       kanji_count, kanji_meta_count, tag_count, media_count, stylesheet,
       is_updatable, index_url, download_url
FROM dictionaries ORDER BY id;
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Dictionary
	for rows.Next() {
		var d store.Dictionary
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Revision, &d.ImportDateUnix, &d.TermCount, &d.TermMetaCount,
			&d.KanjiCount, &d.KanjiMetaCount, &d.TagCount, &d.MediaCount, &d.Stylesheet,
			&d.IsUpdatable, &d.IndexURL, &d.DownloadURL,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDictionary cascades across every table keyed on dictionary
// title, inside one transaction.
func (s *sqliteStore) DeleteDictionary(ctx context.Context, title string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tables := []string{"terms", "term_meta", "kanji", "kanji_meta", "tag_meta", "media"}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE dictionary = ?`, table), title); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dictionaries WHERE title = ?`, title); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) InsertTerms(ctx context.Context, rows []store.TermRow) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO terms (dictionary, expression, reading, expression_reverse, reading_reverse,
	definition_tags, term_tags, rules, score, glossary, sequence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		glossary, err := json.Marshal(r.Glossary)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.Dictionary, r.Expression, r.Reading,
			r.ExpressionReverse, r.ReadingReverse, r.DefinitionTags, r.TermTags,
			r.Rules, r.Score, string(glossary), r.Sequence); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET term_count = term_count + ? WHERE title = ?`, len(rows), rows0Dict(rows)); err != nil {
		return err
	}
	return tx.Commit()
}

// rows0Dict extracts the shared dictionary title from a non-empty batch;
// bulk inserts are always scoped to a single dictionary per call.
func rows0Dict[T any](rows []T) string {
	if len(rows) == 0 {
		return ""
	}
	switch v := any(rows[0]).(type) {
	case store.TermRow:
		return v.Dictionary
	case store.TermMetaRow:
		return v.Dictionary
	case store.KanjiRow:
		return v.Dictionary
	case store.KanjiMetaRow:
		return v.Dictionary
	case store.TagRow:
		return v.Dictionary
	case store.MediaRow:
		return v.Dictionary
	default:
		return ""
	}
}

func (s *sqliteStore) InsertTermMeta(ctx context.Context, rows []store.TermMetaRow) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO term_meta (dictionary, expression, mode, data) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Dictionary, r.Expression, r.Mode, string(r.Data)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET term_meta_count = term_meta_count + ? WHERE title = ?`, len(rows), rows0Dict(rows)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) InsertKanji(ctx context.Context, rows []store.KanjiRow) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO kanji (dictionary, character, onyomi, kunyomi, tags, meanings, stats)
VALUES (?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		meanings, err := json.Marshal(r.Meanings)
		if err != nil {
			return err
		}
		stats, err := json.Marshal(r.Stats)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.Dictionary, r.Character, r.Onyomi, r.Kunyomi, r.Tags, string(meanings), string(stats)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET kanji_count = kanji_count + ? WHERE title = ?`, len(rows), rows0Dict(rows)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) InsertKanjiMeta(ctx context.Context, rows []store.KanjiMetaRow) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kanji_meta (dictionary, character, mode, data) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Dictionary, r.Character, r.Mode, string(r.Data)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET kanji_meta_count = kanji_meta_count + ? WHERE title = ?`, len(rows), rows0Dict(rows)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) InsertTags(ctx context.Context, rows []store.TagRow) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tag_meta (dictionary, name, category, sort_order, notes, score)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(dictionary, name) DO UPDATE SET
	category=excluded.category, sort_order=excluded.sort_order,
	notes=excluded.notes, score=excluded.score;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Dictionary, r.Name, r.Category, r.Order, r.Notes, r.Score); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET tag_count = tag_count + ? WHERE title = ?`, len(rows), rows0Dict(rows)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) InsertMedia(ctx context.Context, rows []store.MediaRow) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO media (dictionary, path, media_type, width, height, content)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(dictionary, path) DO UPDATE SET
	media_type=excluded.media_type, width=excluded.width,
	height=excluded.height, content=excluded.content;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Dictionary, r.Path, r.MediaType, r.Width, r.Height, r.Content); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET media_count = media_count + ? WHERE title = ?`, len(rows), rows0Dict(rows)); err != nil {
		return err
	}
	return tx.Commit()
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func dictArgs(dictSet store.DictSet) (clause string, args []any) {
	if len(dictSet) == 0 {
		return "", nil
	}
	titles := make([]any, 0, len(dictSet))
	for title, enabled := range dictSet {
		if enabled {
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return "1=0", nil
	}
	return fmt.Sprintf("dictionary IN (%s)", placeholders(len(titles))), titles
}

// FindTermsBulk: for each term, query the
// forward or reverse index according to matchType, deduping by row id
// within this call and promoting matchType to exact when the stored
// value equals the query exactly.
func (s *sqliteStore) FindTermsBulk(ctx context.Context, termList []string, dictSet store.DictSet, matchType store.MatchType) ([]store.TermMatch, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	var out []store.TermMatch
	seen := make(map[int64]bool)

	dictClause, dictArgsList := dictArgs(dictSet)

	for idx, term := range termList {
		rows, err := s.findOneTermBulk(ctx, idx, term, dictClause, dictArgsList, matchType)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *sqliteStore) findOneTermBulk(ctx context.Context, idx int, term string, dictClause string, dictArgsList []any, matchType store.MatchType) ([]store.TermMatch, error) {
	type col struct {
		name   string
		source store.MatchSource
	}

	var (
		queryValue string
		cols       []col
	)

	switch matchType {
	case store.MatchExact:
		queryValue = term
		cols = []col{{"expression", store.SourceTerm}, {"reading", store.SourceReading}}
	case store.MatchPrefix:
		queryValue = term + "%"
		cols = []col{{"expression", store.SourceTerm}, {"reading", store.SourceReading}}
	case store.MatchSuffix:
		queryValue = reverseString(term) + "%"
		cols = []col{{"expression_reverse", store.SourceTerm}, {"reading_reverse", store.SourceReading}}
	default:
		return nil, fmt.Errorf("unknown matchType %q", matchType)
	}

	op := "="
	if matchType != store.MatchExact {
		op = "LIKE"
	}

	var out []store.TermMatch
	for _, c := range cols {
		where := fmt.Sprintf("%s %s ?", c.name, op)
		args := []any{queryValue}
		if dictClause != "" {
			where += " AND " + dictClause
			args = append(args, dictArgsList...)
		}
		q := fmt.Sprintf(`
SELECT id, dictionary, expression, reading, expression_reverse, reading_reverse,
       definition_tags, term_tags, rules, score, glossary, sequence
FROM terms WHERE %s;`, where)

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			tr, err := scanTerm(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			mt := matchType
			if exactMatches(matchType, c, term, tr) {
				mt = store.MatchExact
			}
			out = append(out, store.TermMatch{TermRow: tr, MatchType: mt, MatchSource: c.source, QueryIndex: idx})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// exactMatches reports whether a row's matched column value equals the
// query exactly, promoting a prefix/suffix hit to an exact one.
func exactMatches(matchType store.MatchType, c struct {
	name   string
	source store.MatchSource
}, term string, tr store.TermRow) bool {
	if matchType == store.MatchExact {
		return true
	}
	switch c.source {
	case store.SourceTerm:
		return tr.Expression == term
	case store.SourceReading:
		return tr.Reading == term
	}
	return false
}

func scanTerm(rows *sql.Rows) (store.TermRow, error) {
	var tr store.TermRow
	var glossary string
	var sequence sql.NullInt64
	if err := rows.Scan(&tr.ID, &tr.Dictionary, &tr.Expression, &tr.Reading,
		&tr.ExpressionReverse, &tr.ReadingReverse, &tr.DefinitionTags, &tr.TermTags,
		&tr.Rules, &tr.Score, &glossary, &sequence); err != nil {
		return store.TermRow{}, err
	}
	if sequence.Valid {
		v := sequence.Int64
		tr.Sequence = &v
	}
	if err := json.Unmarshal([]byte(glossary), &tr.Glossary); err != nil {
		return store.TermRow{}, err
	}
	if tr.Reading == "" {
		tr.Reading = tr.Expression
	}
	return tr, nil
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// FindTermsExactBulk exact-matches the term and filters to the
// matching reading.
func (s *sqliteStore) FindTermsExactBulk(ctx context.Context, items []store.TermExactQuery, dictSet store.DictSet) ([]store.TermMatch, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	dictClause, dictArgsList := dictArgs(dictSet)
	var out []store.TermMatch

	for idx, item := range items {
		where := "expression = ? AND reading = ?"
		args := []any{item.Term, item.Reading}
		if dictClause != "" {
			where += " AND " + dictClause
			args = append(args, dictArgsList...)
		}
		q := fmt.Sprintf(`
SELECT id, dictionary, expression, reading, expression_reverse, reading_reverse,
       definition_tags, term_tags, rules, score, glossary, sequence
FROM terms WHERE %s;`, where)

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			tr, err := scanTerm(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, store.TermMatch{TermRow: tr, MatchType: store.MatchExact, MatchSource: store.SourceTerm, QueryIndex: idx})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// FindTermsBySequenceBulk exact-matches the sequence index, filtered
// to the dictionary.
func (s *sqliteStore) FindTermsBySequenceBulk(ctx context.Context, items []store.SequenceQuery) ([]store.TermMatch, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	var out []store.TermMatch
	for idx, item := range items {
		const q = `
SELECT id, dictionary, expression, reading, expression_reverse, reading_reverse,
       definition_tags, term_tags, rules, score, glossary, sequence
FROM terms WHERE sequence = ? AND dictionary = ?;`
		rows, err := s.db.QueryContext(ctx, q, item.Sequence, item.Dictionary)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			tr, err := scanTerm(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, store.TermMatch{TermRow: tr, MatchType: store.MatchExact, MatchSource: store.SourceSequence, QueryIndex: idx})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func (s *sqliteStore) FindTermMetaBulk(ctx context.Context, termList []string, dictSet store.DictSet) ([]store.TermMetaMatch, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	dictClause, dictArgsList := dictArgs(dictSet)
	var out []store.TermMetaMatch

	for idx, term := range termList {
		where := "expression = ?"
		args := []any{term}
		if dictClause != "" {
			where += " AND " + dictClause
			args = append(args, dictArgsList...)
		}
		q := fmt.Sprintf(`SELECT id, dictionary, expression, mode, data FROM term_meta WHERE %s;`, where)
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var m store.TermMetaRow
			var data string
			if err := rows.Scan(&m.ID, &m.Dictionary, &m.Expression, &m.Mode, &data); err != nil {
				rows.Close()
				return nil, err
			}
			m.Data = []byte(data)
			out = append(out, store.TermMetaMatch{TermMetaRow: m, QueryIndex: idx})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// FindKanjiBulk is the kanji counterpart to FindTermsBulk: an exact character match against every enabled
// dictionary's kanji table.
func (s *sqliteStore) FindKanjiBulk(ctx context.Context, charList []string, dictSet store.DictSet) ([]store.KanjiMatch, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	dictClause, dictArgsList := dictArgs(dictSet)
	var out []store.KanjiMatch

	for idx, ch := range charList {
		where := "character = ?"
		args := []any{ch}
		if dictClause != "" {
			where += " AND " + dictClause
			args = append(args, dictArgsList...)
		}
		q := fmt.Sprintf(`SELECT id, dictionary, character, onyomi, kunyomi, tags, meanings, stats FROM kanji WHERE %s;`, where)
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var k store.KanjiRow
			var meanings, stats string
			if err := rows.Scan(&k.ID, &k.Dictionary, &k.Character, &k.Onyomi, &k.Kunyomi, &k.Tags, &meanings, &stats); err != nil {
				rows.Close()
				return nil, err
			}
			if err := json.Unmarshal([]byte(meanings), &k.Meanings); err != nil {
				rows.Close()
				return nil, err
			}
			if err := json.Unmarshal([]byte(stats), &k.Stats); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, store.KanjiMatch{KanjiRow: k, QueryIndex: idx})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func (s *sqliteStore) FindKanjiMetaBulk(ctx context.Context, charList []string, dictSet store.DictSet) ([]store.KanjiMetaMatch, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	dictClause, dictArgsList := dictArgs(dictSet)
	var out []store.KanjiMetaMatch

	for idx, ch := range charList {
		where := "character = ?"
		args := []any{ch}
		if dictClause != "" {
			where += " AND " + dictClause
			args = append(args, dictArgsList...)
		}
		q := fmt.Sprintf(`SELECT id, dictionary, character, mode, data FROM kanji_meta WHERE %s;`, where)
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var m store.KanjiMetaRow
			var data string
			if err := rows.Scan(&m.ID, &m.Dictionary, &m.Character, &m.Mode, &data); err != nil {
				rows.Close()
				return nil, err
			}
			m.Data = []byte(data)
			out = append(out, store.KanjiMetaMatch{KanjiMetaRow: m, QueryIndex: idx})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func (s *sqliteStore) FindTagMetaBulk(ctx context.Context, items []store.TagQuery) ([]store.TagRow, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	var out []store.TagRow
	for _, item := range items {
		const q = `SELECT id, dictionary, name, category, sort_order, notes, score FROM tag_meta WHERE dictionary = ? AND name = ?;`
		var t store.TagRow
		err := s.db.QueryRowContext(ctx, q, item.Dictionary, item.Name).Scan(
			&t.ID, &t.Dictionary, &t.Name, &t.Category, &t.Order, &t.Notes, &t.Score)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *sqliteStore) GetMedia(ctx context.Context, items []store.MediaQuery) ([]store.MediaRow, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	var out []store.MediaRow
	for _, item := range items {
		const q = `SELECT id, dictionary, path, media_type, width, height, content FROM media WHERE dictionary = ? AND path = ?;`
		var m store.MediaRow
		err := s.db.QueryRowContext(ctx, q, item.Dictionary, item.Path).Scan(
			&m.ID, &m.Dictionary, &m.Path, &m.MediaType, &m.Width, &m.Height, &m.Content)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
