// Package clusterdb persists finalized clusters to SQLite. One run row is
// created per clustering pass; each finalized cluster is stored with a
// summary and its member hits.
package clusterdb

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/trigger.stream/internal/dbscan"
)

type ClusterDB struct {
	*sql.DB
}

// schema.sql defines the runs, clusters and cluster_hits tables.
//
//go:embed schema.sql
var schemaSQL string

// New opens (creating if needed) the cluster database at path.
func New(path string) (*ClusterDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply cluster schema: %w", err)
	}

	return &ClusterDB{db}, nil
}

// StartRun records a new clustering run and returns its id.
func (cdb *ClusterDB) StartRun(source string, eps float64, minPts int) (string, error) {
	runID := uuid.NewString()
	_, err := cdb.Exec(
		`INSERT INTO runs (id, source, eps, min_pts) VALUES (?, ?, ?, ?)`,
		runID, source, eps, minPts,
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return runID, nil
}

// RecordCluster stores a finalized cluster and its member hits under the
// given run, in a single transaction.
func (cdb *ClusterDB) RecordCluster(runID string, c *dbscan.Cluster) error {
	hits := c.Hits.Hits()
	if len(hits) == 0 {
		return fmt.Errorf("refusing to record empty cluster %d", c.Index)
	}

	var sumTime, sumChan float64
	for _, h := range hits {
		sumTime += h.Time
		sumChan += float64(h.Chan)
	}
	n := float64(len(hits))
	first, last := c.TimeSpan()

	tx, err := cdb.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO clusters (run_id, cluster_index, size, first_time, last_time, centroid_time, centroid_chan)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, c.Index, len(hits), first, last, sumTime/n, sumChan/n,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cluster %d: %w", c.Index, err)
	}
	clusterID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get cluster row id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO cluster_hits (cluster_id, seq, time, chan) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, h := range hits {
		if _, err := stmt.Exec(clusterID, h.Seq, h.Time, h.Chan); err != nil {
			return fmt.Errorf("failed to insert hit seq %d: %w", h.Seq, err)
		}
	}

	return tx.Commit()
}

// FinishRun closes a run and records its totals.
func (cdb *ClusterDB) FinishRun(runID string, hitCount, clusterCount int) error {
	_, err := cdb.Exec(
		`UPDATE runs SET hit_count = ?, cluster_count = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`,
		hitCount, clusterCount, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// ClusterCount returns how many clusters are stored for a run.
func (cdb *ClusterDB) ClusterCount(runID string) (int, error) {
	var n int
	err := cdb.QueryRow(`SELECT COUNT(*) FROM clusters WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// ClusterSizes returns the per-cluster sizes for a run, ordered by cluster
// index.
func (cdb *ClusterDB) ClusterSizes(runID string) ([]int, error) {
	rows, err := cdb.Query(`SELECT size FROM clusters WHERE run_id = ? ORDER BY cluster_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sizes []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sizes = append(sizes, s)
	}
	return sizes, rows.Err()
}
