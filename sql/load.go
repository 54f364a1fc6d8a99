package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed articles.sql
var articlesSQL string

//go:embed passages.sql
var passagesSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

// Function lists for verification
var ArticlesFunctions = []string{
	"init_articles",
	"insert_article",
	"select_article",
	"select_article_by_url",
	"select_all_articles",
	"search_articles",
	"select_article_urls",
	"select_processed_urls",
	"select_articles_pending_graph",
	"mark_article_graph_extracted",
	"delete_article",
}

var PassagesFunctions = []string{
	"init_passages",
	"insert_passage",
	"select_passage",
	"select_passages_by_article",
	"select_passages_by_similarity",
	"count_passages_by_article",
	"delete_passages_by_article",
}

var EntitiesFunctions = []string{
	"init_entities",
	"merge_entity",
	"select_entity",
	"select_entity_by_name",
	"search_entities",
	"select_entities_by_type",
	"delete_entity",
}

var RelationshipsFunctions = []string{
	"init_relationships",
	"merge_relationship",
	"select_relationship",
	"select_relationships_from_entity",
	"select_relationships_to_entity",
	"select_relationships_connected_to_entity",
	"match_relationships",
	"delete_relationship",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadArticlesSql loads article-related SQL functions
func LoadArticlesSql(db *sql.DB, force bool) error {
	return loadSql(db, "articles", articlesSQL, ArticlesFunctions, force)
}

// LoadPassagesSql loads passage-related SQL functions
func LoadPassagesSql(db *sql.DB, force bool) error {
	return loadSql(db, "passages", passagesSQL, PassagesFunctions, force)
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, "entities", entitiesSQL, EntitiesFunctions, force)
}

// LoadRelationshipsSql loads relationship-related SQL functions
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	return loadSql(db, "relationships", relationshipsSQL, RelationshipsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	loaders := []func(*sql.DB, bool) error{
		LoadArticlesSql,
		LoadPassagesSql,
		LoadEntitiesSql,
		LoadRelationshipsSql,
	}
	for _, load := range loaders {
		if err := load(db, force); err != nil {
			return err
		}
	}
	return nil
}

func loadSql(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", name)
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
