package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDDL(t *testing.T) {
	for _, table := range []string{"store_snapshots", "pull_runs"} {
		assert.Contains(t, schemaDDL, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Equal(t, 1, strings.Count(schemaDDL, "CREATE INDEX"))
}

func TestErrNoSnapshot(t *testing.T) {
	assert.EqualError(t, ErrNoSnapshot, "snapshot not found")
}
