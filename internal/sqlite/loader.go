package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
)

// loadAllJSONL reads nodes.jsonl from dataDir and inserts every record into
// the nodes table. Loading is transactional: either every usable line loads
// or the database stays empty. Malformed lines, lines that fail validation
// and duplicate ids are skipped; unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	records, err := readJSONL(filepath.Join(dataDir, nodesJSONL))
	if err != nil {
		return fmt.Errorf("reading %s: %w", nodesJSONL, err)
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		var j nodeJSON
		if err := json.Unmarshal(rec, &j); err != nil {
			continue
		}
		n, err := j.toNode()
		if err != nil || n.NodeID == "" || n.Validate() != nil {
			continue
		}
		query, args, err := sq.Insert("nodes").
			Options("OR IGNORE").
			Columns(nodeColumns...).
			Values(n.NodeID, n.Name, nullableParent(n.ParentID), formatTime(n.CreatedAt), formatTime(n.UpdatedAt)).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("loading node %s: %w", n.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// nullableParent maps the empty parent of a root to SQL NULL.
func nullableParent(parentID string) any {
	if parentID == "" {
		return nil
	}
	return parentID
}
