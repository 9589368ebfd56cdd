package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/config"
)

func TestSplitStatementsDropsCommentsAndBlanks(t *testing.T) {
	content := "-- users\nCREATE TABLE a (id TEXT);\n\n  ;\nCREATE INDEX i ON a (id);\n-- trailing\n"
	require.Equal(t, []string{"CREATE TABLE a (id TEXT)", "CREATE INDEX i ON a (id)"}, splitStatements(content))
}

func TestMigrationFilesAreOrderedAndParse(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "001_init.sql", files[0])
	for i := 1; i < len(files); i++ {
		require.Less(t, files[i-1], files[i])
	}
}

func TestDataSource(t *testing.T) {
	require.Equal(t, "postgres://x", dataSource(config.DatabaseConfig{DSN: "postgres://x", Host: "ignored"}))
	require.Equal(t,
		"host=db port=5432 user=u password=p dbname=n sslmode=disable",
		dataSource(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n"}))
}
