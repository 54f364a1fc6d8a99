package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Initialize database extensions", func(t *testing.T) {
		var exists bool
		err := db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		assert.NoError(t, Init(db.Instance))
		assert.NoError(t, Init(db.Instance))
	})
}

func TestLoadSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	loaders := []struct {
		name      string
		load      func(force bool) error
		functions []string
	}{
		{"articles", func(force bool) error { return LoadArticlesSql(db.Instance, force) }, ArticlesFunctions},
		{"passages", func(force bool) error { return LoadPassagesSql(db.Instance, force) }, PassagesFunctions},
		{"entities", func(force bool) error { return LoadEntitiesSql(db.Instance, force) }, EntitiesFunctions},
		{"relationships", func(force bool) error { return LoadRelationshipsSql(db.Instance, force) }, RelationshipsFunctions},
	}

	for _, l := range loaders {
		t.Run("Load "+l.name+" SQL functions", func(t *testing.T) {
			require.NoError(t, l.load(false))

			for _, funcName := range l.functions {
				var exists bool
				err := db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
				require.NoError(t, err)
				assert.True(t, exists, "Function %s should exist", funcName)
			}
		})

		t.Run("Load "+l.name+" SQL is idempotent without force", func(t *testing.T) {
			assert.NoError(t, l.load(false))
		})

		t.Run("Load "+l.name+" SQL with force reloads", func(t *testing.T) {
			assert.NoError(t, l.load(true))
		})
	}

	t.Run("Load all SQL functions", func(t *testing.T) {
		assert.NoError(t, LoadAllSql(db.Instance, true))
	})
}

func TestCheckFunctions(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Unknown function is reported missing", func(t *testing.T) {
		exist, err := checkFunctions(db.Instance, []string{"dealgraph_function_that_does_not_exist"})
		require.NoError(t, err)
		assert.False(t, exist)
	})
}
