package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestSlotEntityRoundTrip(t *testing.T) {
	payload, err := encodeSlotEntity(DefaultKey, []byte(`[{"id":1}]`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, field := range []string{`"PartitionKey":"tm_tasks_v1"`, `"RowKey":"tm_tasks_v1"`} {
		if !strings.Contains(string(payload), field) {
			t.Fatalf("expected %s in %s", field, payload)
		}
	}
	data, err := decodeSlotEntity(payload)
	if err != nil || string(data) != `[{"id":1}]` {
		t.Fatalf("decode: %q %v", data, err)
	}
}

func TestSlotEntityWithoutDataIsEmpty(t *testing.T) {
	_, err := decodeSlotEntity([]byte(`{"PartitionKey":"k","RowKey":"k","Timestamp":"2024-01-01T00:00:00Z"}`))
	if !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("expected empty slot, got %v", err)
	}
}

func TestMySQLSlotRejectsUnsafeTableNames(t *testing.T) {
	for _, name := range []string{"kv; DROP TABLE x", "1abc", "a-b"} {
		if _, err := NewMySQLSlot(nil, name); err == nil {
			t.Fatalf("table name %q accepted", name)
		}
	}
	s, err := NewMySQLSlot(nil, "")
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	if !strings.Contains(s.CreateTableStatement(), "CREATE TABLE IF NOT EXISTS kv_slots") {
		t.Fatalf("unexpected DDL: %s", s.CreateTableStatement())
	}
}
