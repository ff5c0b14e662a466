package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

const columnsPerRow = 10

var scalarColumns = domain.MetricNames

// TimescaleSink archives snapshots into a hypertable keyed by timestamp.
// Channel arrays are stored zero-padded; scalar metrics are nullable.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

// OpenTimescale connects through lib/pq and pings the server.
func OpenTimescale(connString, table string) (*TimescaleSink, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	return NewTimescaleSink(db, table), nil
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// EnsureSchema creates the archive table if it does not exist.
func (t *TimescaleSink) EnsureSchema() error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(t.tableName)
	b.WriteString(" (ts TIMESTAMPTZ PRIMARY KEY, pressures DOUBLE PRECISION[], temperatures DOUBLE PRECISION[]")
	for _, c := range scalarColumns {
		b.WriteString(", ")
		b.WriteString(c)
		b.WriteString(" DOUBLE PRECISION")
	}
	b.WriteString(")")
	if _, err := t.db.Exec(b.String()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (t *TimescaleSink) WriteBatch(snapshots []*domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	// INSERT ... ON CONFLICT DO NOTHING keeps WAL replay idempotent
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (ts, pressures, temperatures, ")
	b.WriteString(strings.Join(scalarColumns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(snapshots)*columnsPerRow)
	for i, s := range snapshots {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := 0; c < columnsPerRow; c++ {
			if c > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+c+1)
		}
		b.WriteString(")")

		args = append(args,
			s.Timestamp,
			pq.Array(s.PressureValues()),
			pq.Array(s.TemperatureValues()),
			nullable(s.ISP),
			nullable(s.Thrust),
			nullable(s.OxygenConsumption),
			nullable(s.FuelConsumption),
			nullable(s.TotalImpulse),
			nullable(s.ExhaustVelocity),
			nullable(s.Voltage),
		)
	}

	b.WriteString(" ON CONFLICT (ts) DO NOTHING")

	if _, err := t.db.Exec(b.String(), args...); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

func (t *TimescaleSink) Close() error { return t.db.Close() }

func nullable(r domain.Reading) sql.NullFloat64 {
	return sql.NullFloat64{Float64: r.Value, Valid: r.Valid}
}

var _ ports.Sink = (*TimescaleSink)(nil)
