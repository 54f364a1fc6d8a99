package database

import (
	"context"
	"log"
	"testing"

	"github.com/siherrmann/dealgraph/helper"
	loadSql "github.com/siherrmann/dealgraph/sql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initDB(t *testing.T) *helper.Database {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)

	err = loadSql.Init(database.Instance)
	require.NoError(t, err)

	return database
}

// initHandlers creates all handlers in dependency order.
func initHandlers(t *testing.T) (*ArticlesDBHandler, *PassagesDBHandler, *EntitiesDBHandler, *RelationshipsDBHandler) {
	database := initDB(t)

	articles, err := NewArticlesDBHandler(database, true)
	require.NoError(t, err)

	passages, err := NewPassagesDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	entities, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)

	relationships, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err)

	return articles, passages, entities, relationships
}

const testEmbeddingDim = 384

// testEmbedding returns a unit vector pointing along axis i.
func testEmbedding(i int) []float32 {
	embedding := make([]float32, testEmbeddingDim)
	embedding[i%testEmbeddingDim] = 1
	return embedding
}
