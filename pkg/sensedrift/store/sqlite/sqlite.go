// Package sqlite persists snapshots as numbered SQLite files,
// corpus_<n>.db, in the run's output directory.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
	"github.com/cognicore/sensedrift/pkg/sensedrift/store"
)

type sqliteStore struct {
	dir string
}

// Open creates a snapshot store rooted at dir, creating it if needed.
func Open(dir string) (store.Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &sqliteStore{dir: dir}, nil
}

// Close implements store.Store. Snapshot files are opened per call, so
// there is nothing to release here.
func (s *sqliteStore) Close() error { return nil }

func (s *sqliteStore) path(seq int) string {
	return filepath.Join(s.dir, fmt.Sprintf("corpus_%d.db", seq))
}

const schema = `
CREATE TABLE meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE vocab (
	id INTEGER PRIMARY KEY,
	word TEXT NOT NULL UNIQUE,
	count INTEGER NOT NULL
);

CREATE TABLE docs (
	id INTEGER PRIMARY KEY,
	origin TEXT NOT NULL,
	has_senses INTEGER NOT NULL
);

CREATE TABLE doc_words (
	doc_id INTEGER NOT NULL,
	pos INTEGER NOT NULL,
	word_id INTEGER NOT NULL,
	PRIMARY KEY(doc_id, pos),
	FOREIGN KEY(doc_id) REFERENCES docs(id)
);

CREATE TABLE clusters (
	doc_id INTEGER NOT NULL,
	cluster_idx INTEGER NOT NULL,
	ord INTEGER NOT NULL,
	pos INTEGER NOT NULL,
	PRIMARY KEY(doc_id, cluster_idx, ord),
	FOREIGN KEY(doc_id) REFERENCES docs(id)
);

CREATE TABLE cluster_senses (
	doc_id INTEGER NOT NULL,
	cluster_idx INTEGER NOT NULL,
	sense INTEGER NOT NULL,
	PRIMARY KEY(doc_id, cluster_idx),
	FOREIGN KEY(doc_id) REFERENCES docs(id)
);

CREATE TABLE assoc (
	i INTEGER NOT NULL,
	j INTEGER NOT NULL,
	n REAL NOT NULL,
	PRIMARY KEY(i, j)
);
`

// Save implements store.Store. The snapshot path is acquired with an
// exclusive create so concurrent writers targeting the same directory
// cannot interleave partial writes.
func (s *sqliteStore) Save(ctx context.Context, snap store.Snapshot) error {
	path := s.path(snap.Seq)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("snapshot %d at %s: %w", snap.Seq, path, internalerr.ErrSnapshotExists)
		}
		return err
	}
	f.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init snapshot schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertMeta(ctx, tx, snap); err != nil {
		return err
	}
	for id, word := range snap.Words {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vocab (id, word, count) VALUES (?, ?, ?)",
			id, word, snap.Counts[id]); err != nil {
			return fmt.Errorf("save vocab: %w", err)
		}
	}
	for _, d := range snap.Docs {
		if err := insertDoc(ctx, tx, d); err != nil {
			return err
		}
	}
	for _, c := range snap.Cells {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO assoc (i, j, n) VALUES (?, ?, ?)",
			c.Row, c.Col, c.Count); err != nil {
			return fmt.Errorf("save assoc cell (%d,%d): %w", c.Row, c.Col, err)
		}
	}
	return tx.Commit()
}

func insertMeta(ctx context.Context, tx *sql.Tx, snap store.Snapshot) error {
	for key, value := range map[string]string{
		"run_id": snap.RunID,
		"seq":    strconv.Itoa(snap.Seq),
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}
	return nil
}

func insertDoc(ctx context.Context, tx *sql.Tx, d store.Doc) error {
	hasSenses := 0
	if d.Senses != nil {
		hasSenses = 1
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO docs (id, origin, has_senses) VALUES (?, ?, ?)",
		d.ID, d.Origin, hasSenses); err != nil {
		return fmt.Errorf("save doc %d: %w", d.ID, err)
	}
	for pos, wordID := range d.Words {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO doc_words (doc_id, pos, word_id) VALUES (?, ?, ?)",
			d.ID, pos, wordID); err != nil {
			return fmt.Errorf("save doc %d words: %w", d.ID, err)
		}
	}
	for idx, cluster := range d.Partition {
		for ord, pos := range cluster {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO clusters (doc_id, cluster_idx, ord, pos) VALUES (?, ?, ?, ?)",
				d.ID, idx, ord, pos); err != nil {
				return fmt.Errorf("save doc %d partition: %w", d.ID, err)
			}
		}
	}
	for idx, sense := range d.Senses {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO cluster_senses (doc_id, cluster_idx, sense) VALUES (?, ?, ?)",
			d.ID, idx, sense); err != nil {
			return fmt.Errorf("save doc %d senses: %w", d.ID, err)
		}
	}
	return nil
}

// Load implements store.Store.
func (s *sqliteStore) Load(ctx context.Context, seq int) (store.Snapshot, error) {
	path := s.path(seq)
	if _, err := os.Stat(path); err != nil {
		return store.Snapshot{}, fmt.Errorf("snapshot %d: %w", seq, internalerr.ErrNotFound)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer db.Close()

	snap := store.Snapshot{Seq: seq}
	if err := db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = 'run_id'").Scan(&snap.RunID); err != nil {
		return store.Snapshot{}, fmt.Errorf("load meta: %w", err)
	}

	if err := loadVocab(ctx, db, &snap); err != nil {
		return store.Snapshot{}, err
	}
	if err := loadDocs(ctx, db, &snap); err != nil {
		return store.Snapshot{}, err
	}
	if err := loadAssoc(ctx, db, &snap); err != nil {
		return store.Snapshot{}, err
	}
	return snap, nil
}

func loadVocab(ctx context.Context, db *sql.DB, snap *store.Snapshot) error {
	rows, err := db.QueryContext(ctx, "SELECT id, word, count FROM vocab ORDER BY id")
	if err != nil {
		return fmt.Errorf("load vocab: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    int
			word  string
			count int64
		)
		if err := rows.Scan(&id, &word, &count); err != nil {
			return err
		}
		if id != len(snap.Words) {
			return fmt.Errorf("vocab ids not dense at %d", id)
		}
		snap.Words = append(snap.Words, word)
		snap.Counts = append(snap.Counts, count)
	}
	return rows.Err()
}

func loadDocs(ctx context.Context, db *sql.DB, snap *store.Snapshot) error {
	rows, err := db.QueryContext(ctx, "SELECT id, origin, has_senses FROM docs ORDER BY id")
	if err != nil {
		return fmt.Errorf("load docs: %w", err)
	}
	defer rows.Close()

	withSenses := make(map[int]bool)
	for rows.Next() {
		var (
			d         store.Doc
			hasSenses int
		)
		if err := rows.Scan(&d.ID, &d.Origin, &hasSenses); err != nil {
			return err
		}
		withSenses[d.ID] = hasSenses == 1
		snap.Docs = append(snap.Docs, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	byID := make(map[int]*store.Doc, len(snap.Docs))
	for i := range snap.Docs {
		byID[snap.Docs[i].ID] = &snap.Docs[i]
	}

	wordRows, err := db.QueryContext(ctx,
		"SELECT doc_id, word_id FROM doc_words ORDER BY doc_id, pos")
	if err != nil {
		return fmt.Errorf("load doc words: %w", err)
	}
	defer wordRows.Close()
	for wordRows.Next() {
		var docID, wordID int
		if err := wordRows.Scan(&docID, &wordID); err != nil {
			return err
		}
		d, ok := byID[docID]
		if !ok {
			return fmt.Errorf("doc_words references unknown doc %d", docID)
		}
		d.Words = append(d.Words, wordID)
	}
	if err := wordRows.Err(); err != nil {
		return err
	}

	clusterRows, err := db.QueryContext(ctx,
		"SELECT doc_id, cluster_idx, pos FROM clusters ORDER BY doc_id, cluster_idx, ord")
	if err != nil {
		return fmt.Errorf("load clusters: %w", err)
	}
	defer clusterRows.Close()
	for clusterRows.Next() {
		var docID, idx, pos int
		if err := clusterRows.Scan(&docID, &idx, &pos); err != nil {
			return err
		}
		d, ok := byID[docID]
		if !ok {
			return fmt.Errorf("clusters references unknown doc %d", docID)
		}
		for len(d.Partition) <= idx {
			d.Partition = append(d.Partition, nil)
		}
		d.Partition[idx] = append(d.Partition[idx], pos)
	}
	if err := clusterRows.Err(); err != nil {
		return err
	}

	senseRows, err := db.QueryContext(ctx,
		"SELECT doc_id, cluster_idx, sense FROM cluster_senses ORDER BY doc_id, cluster_idx")
	if err != nil {
		return fmt.Errorf("load senses: %w", err)
	}
	defer senseRows.Close()
	for senseRows.Next() {
		var docID, idx, sense int
		if err := senseRows.Scan(&docID, &idx, &sense); err != nil {
			return err
		}
		d, ok := byID[docID]
		if !ok {
			return fmt.Errorf("cluster_senses references unknown doc %d", docID)
		}
		for len(d.Senses) <= idx {
			d.Senses = append(d.Senses, 0)
		}
		d.Senses[idx] = sense
	}
	if err := senseRows.Err(); err != nil {
		return err
	}

	// Docs flagged with senses but no sense rows keep an empty,
	// non-nil mapping.
	for id, has := range withSenses {
		if has && byID[id].Senses == nil {
			byID[id].Senses = []int{}
		}
	}
	return nil
}

func loadAssoc(ctx context.Context, db *sql.DB, snap *store.Snapshot) error {
	rows, err := db.QueryContext(ctx, "SELECT i, j, n FROM assoc ORDER BY i, j")
	if err != nil {
		return fmt.Errorf("load assoc: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c store.Cell
		if err := rows.Scan(&c.Row, &c.Col, &c.Count); err != nil {
			return err
		}
		snap.Cells = append(snap.Cells, c)
	}
	return rows.Err()
}

// LatestSeq implements store.Store.
func (s *sqliteStore) LatestSeq(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "corpus_*.db"))
	if err != nil {
		return 0, err
	}
	var seqs []int
	for _, m := range matches {
		base := filepath.Base(m)
		var n int
		if _, err := fmt.Sscanf(base, "corpus_%d.db", &n); err == nil {
			seqs = append(seqs, n)
		}
	}
	if len(seqs) == 0 {
		return 0, nil
	}
	sort.Ints(seqs)
	return seqs[len(seqs)-1], nil
}
