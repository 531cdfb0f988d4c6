package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x Int64);

-- second
CREATE TABLE b (
    y String -- trailing
);
`
	stmts, err := splitStatements(input)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64)", stmts[0])
	assert.Contains(t, stmts[1], "y String")
	assert.NotContains(t, stmts[1], "trailing")
}

func TestSplitStatements_Literals(t *testing.T) {
	stmts, err := splitStatements(`SELECT 'a;b'; SELECT 'it''s -- not a comment';`)
	require.NoError(t, err)
	assert.Equal(t, []string{`SELECT 'a;b'`, `SELECT 'it''s -- not a comment'`}, stmts)

	_, err = splitStatements(`SELECT 'open;`)
	assert.ErrorIs(t, err, errUnterminatedString)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/backtest")
	require.NoError(t, err)
	assert.Equal(t, "backtest", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 1)
	assert.Equal(t, "001_bars.sql", pg[0].name)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)

	stmts, err := splitStatements(ch[0].sql)
	require.NoError(t, err)
	assert.Len(t, stmts, 1)
}
