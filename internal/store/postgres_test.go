package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tyler180/allstar-rosters/internal/export"
)

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL("player_seasons", []export.Column{
		{Name: "bb_key", Type: "string"},
		{Name: "year_id", Type: "bigint"},
		{Name: "salary", Type: "double"},
		{Name: "allstar_flag", Type: "boolean"},
		{Name: "debut_date", Type: "date"},
	})
	want := `CREATE TABLE "player_seasons" (
    "bb_key" TEXT,
    "year_id" BIGINT,
    "salary" DOUBLE PRECISION,
    "allstar_flag" BOOLEAN,
    "debut_date" DATE,
    PRIMARY KEY (bb_key)
)`
	assert.Equal(t, want, got)
}

func TestCreateTableSQLWithoutKey(t *testing.T) {
	got := CreateTableSQL("viewership", []export.Column{{Name: "year", Type: "bigint"}})
	assert.Equal(t, "CREATE TABLE \"viewership\" (\n    \"year\" BIGINT\n)", got)
}
