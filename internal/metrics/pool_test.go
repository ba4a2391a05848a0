package metrics

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCorpusPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := sql.DBStats{OpenConnections: 7, InUse: 2, Idle: 5, WaitCount: 3}
	require.NoError(t, RegisterCorpusPool(reg, func() sql.DBStats { return stats }))

	expected := `
# HELP diktim_corpus_db_in_use_connections Corpus database connections currently in use
# TYPE diktim_corpus_db_in_use_connections gauge
diktim_corpus_db_in_use_connections 2
# HELP diktim_corpus_db_open_connections Open connections in the corpus database pool
# TYPE diktim_corpus_db_open_connections gauge
diktim_corpus_db_open_connections 7
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"diktim_corpus_db_open_connections", "diktim_corpus_db_in_use_connections"))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	assert.NoError(t, RegisterCorpusPool(reg, func() sql.DBStats { return stats }))
}
