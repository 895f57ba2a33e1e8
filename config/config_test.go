package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbolsDefaults(t *testing.T) {
	assert.Equal(t, DefaultSymbols, parseSymbols(""))
	assert.Equal(t, DefaultSymbols, parseSymbols("  ,  ,"))
}

func TestParseSymbolsNormalizes(t *testing.T) {
	got := parseSymbols(" aapl, MSFT ,googl")
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, got)
}

func TestInitDBCreatesSqliteDirectory(t *testing.T) {
	prev := AppConfig
	prevDB := DB
	t.Cleanup(func() {
		AppConfig = prev
		DB = prevDB
	})

	dbPath := t.TempDir() + "/nested/data/test.db"
	AppConfig = &Config{
		Environment: "production",
		DBDriver:    "sqlite",
		DBPath:      dbPath,
	}

	db, err := InitDB()
	require.NoError(t, err)
	require.NotNil(t, db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}
