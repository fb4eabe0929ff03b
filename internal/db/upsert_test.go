package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "kv",
		Columns:      []string{"key", "value", "updated_at"},
		ConflictKeys: []string{"key"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "kv" ("key", "value", "updated_at") VALUES ($1, $2, $3) ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value", "updated_at" = EXCLUDED."updated_at"`,
		sql)
}

func TestUpsertSQL_SchemaAndExplicitUpdate(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "agrimate.kv",
		Columns:      []string{"key", "value"},
		ConflictKeys: []string{"key"},
		UpdateCols:   []string{"value"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `INSERT INTO "agrimate"."kv"`)
	assert.Contains(t, sql, `DO UPDATE SET "value" = EXCLUDED."value"`)
}

func TestUpsertSQL_OnlyKeys(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{Table: "seen", Columns: []string{"id"}, ConflictKeys: []string{"id"}})
	require.NoError(t, err)
	assert.Contains(t, sql, "DO NOTHING")
}

func TestUpsertSQL_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{"no table", UpsertConfig{Columns: []string{"a"}, ConflictKeys: []string{"a"}}, "no table"},
		{"no columns", UpsertConfig{Table: "t", ConflictKeys: []string{"a"}}, "no columns"},
		{"no keys", UpsertConfig{Table: "t", Columns: []string{"a"}}, "no conflict keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UpsertSQL(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
