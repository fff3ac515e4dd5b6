package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/go-sql-driver/mysql"
)

// DefaultSlotTable is the table MySQLSlot uses when none is given.
const DefaultSlotTable = "kv_slots"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// MySQLSlot keeps values in a two-column key-value table.
type MySQLSlot struct {
	db    *sql.DB
	table string
}

// OpenMySQLSlot opens and pings the database described by dsn.
func OpenMySQLSlot(ctx context.Context, dsn, table string) (*MySQLSlot, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s, err := NewMySQLSlot(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLSlot wraps an open database handle.
func NewMySQLSlot(db *sql.DB, table string) (*MySQLSlot, error) {
	if table == "" {
		table = DefaultSlotTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid slot table name %q", table)
	}
	return &MySQLSlot{db: db, table: table}, nil
}

// CreateTableStatement is the DDL for the slot table.
func (m *MySQLSlot) CreateTableStatement() string {
	return "CREATE TABLE IF NOT EXISTS " + m.table + ` (
    slot_key VARCHAR(191) PRIMARY KEY,
    slot_value LONGTEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) DEFAULT CHARSET=utf8mb4`
}

// Migrate creates the slot table if needed.
func (m *MySQLSlot) Migrate(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, m.CreateTableStatement())
	return err
}

func (m *MySQLSlot) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx, "SELECT slot_value FROM "+m.table+" WHERE slot_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	return value, err
}

func (m *MySQLSlot) Put(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx,
		"INSERT INTO "+m.table+" (slot_key, slot_value) VALUES (?, ?) ON DUPLICATE KEY UPDATE slot_value = VALUES(slot_value)",
		key, value)
	return err
}

func (m *MySQLSlot) Close() error { return m.db.Close() }
