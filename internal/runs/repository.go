// Package runs persists completed report summaries in the runs database so
// past simulations can be listed and refetched.
package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/database"
	"github.com/atlasclimate/atlas/internal/domain"
)

// Record is one persisted run.
type Record struct {
	RunID       string         `json:"run_id"`
	AssetID     string         `json:"asset_id"`
	ProjectType string         `json:"project_type"`
	Scenario    string         `json:"scenario"`
	NPVUSD      float64        `json:"npv_usd"`
	DamagePct   float64        `json:"damage_pct"`
	Degraded    bool           `json:"degraded"`
	CreatedAt   time.Time      `json:"created_at"`
	Report      *domain.Report `json:"report,omitempty"`
}

// Repository stores run history.
type Repository struct {
	log zerolog.Logger
	db  *database.DB
}

// NewRepository prepares the runs table.
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		log: log.With().Str("component", "runs").Logger(),
		db:  db,
	}

	_, err := db.Conn().Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			asset_id     TEXT NOT NULL,
			project_type TEXT NOT NULL,
			scenario     TEXT NOT NULL,
			npv_usd      REAL NOT NULL,
			damage_pct   REAL NOT NULL,
			degraded     INTEGER NOT NULL,
			report       TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_asset ON runs(asset_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return r, nil
}

// Save persists a completed report. Failures are surfaced to the caller;
// the run itself has already succeeded, so handlers log and continue.
func (r *Repository) Save(ctx context.Context, rep *domain.Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	scenario, _ := json.Marshal(rep.Scenario)

	_, err = r.db.Conn().ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, asset_id, project_type, scenario, npv_usd, damage_pct, degraded, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.AssetID, string(rep.Kind), string(scenario),
		rep.Financial.NPVUSD, rep.Physics.DamagePct, rep.Degraded,
		string(body), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get fetches one run with its full report. A missing id returns an
// INVALID_INPUT error so the surface can answer 404-shaped.
func (r *Repository) Get(ctx context.Context, runID string) (*Record, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT run_id, asset_id, project_type, scenario, npv_usd, damage_pct, degraded, report, created_at
		FROM runs WHERE run_id = ?`, runID)

	rec, body, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Invalidf("run %q not found", runID)
		}
		return nil, err
	}

	var rep domain.Report
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return nil, fmt.Errorf("decode stored report: %w", err)
	}
	rec.Report = &rep
	return rec, nil
}

// List returns the newest run summaries, optionally filtered by asset.
func (r *Repository) List(ctx context.Context, assetID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT run_id, asset_id, project_type, scenario, npv_usd, damage_pct, degraded, report, created_at
		FROM runs`
	args := []any{}
	if assetID != "" {
		query += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY created_at DESC, run_id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, _, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Prune deletes runs older than the retention window. Run by the
// maintenance scheduler.
func (r *Repository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	res, err := r.db.Conn().ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info().Int64("rows", n).Msg("pruned old runs")
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, string, error) {
	var rec Record
	var body string
	var created int64
	err := row.Scan(&rec.RunID, &rec.AssetID, &rec.ProjectType, &rec.Scenario,
		&rec.NPVUSD, &rec.DamagePct, &rec.Degraded, &body, &created)
	if err != nil {
		return nil, "", err
	}
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return &rec, body, nil
}
