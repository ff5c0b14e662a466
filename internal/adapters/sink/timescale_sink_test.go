package sink

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

const insertOne = "INSERT INTO rig_telemetry (ts, pressures, temperatures, isp, thrust, oxygen_consumption, fuel_consumption, total_impulse, exhaust_velocity, voltage) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) ON CONFLICT (ts) DO NOTHING"

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "rig_telemetry")
	ts := time.Now()

	s := &domain.Snapshot{Timestamp: ts}
	s.Thrust = domain.Available(812.5)
	s.Voltage = domain.Available(0)

	mock.ExpectExec(regexp.QuoteMeta(insertOne)).
		WithArgs(ts, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sql.NullFloat64{},
			sql.NullFloat64{Float64: 812.5, Valid: true},
			sql.NullFloat64{},
			sql.NullFloat64{},
			sql.NullFloat64{},
			sql.NullFloat64{},
			sql.NullFloat64{Float64: 0, Valid: true},
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.WriteBatch([]*domain.Snapshot{s}); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchMultipleRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "rig_telemetry")
	mock.ExpectExec(regexp.QuoteMeta("($1,$2,$3,$4,$5,$6,$7,$8,$9,$10),($11,$12,$13,$14,$15,$16,$17,$18,$19,$20) ON CONFLICT (ts) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	batch := []*domain.Snapshot{{Timestamp: time.Unix(1, 0)}, {Timestamp: time.Unix(2, 0)}}
	if err := sink.WriteBatch(batch); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWrapsExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO rig_telemetry").WillReturnError(boom)

	err = NewTimescaleSink(db, "rig_telemetry").WriteBatch([]*domain.Snapshot{{}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

func TestTimescaleSinkWriteBatchNoSnapshots(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "rig_telemetry")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS rig_telemetry (ts TIMESTAMPTZ PRIMARY KEY")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := NewTimescaleSink(db, "rig_telemetry").EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "rig_telemetry")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
