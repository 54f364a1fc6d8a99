package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/model"
)

// GraphDB defines the entity graph operations the traversals need
type GraphDB interface {
	GetEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	// GetRelationships returns the relationships starting or ending at the entity
	GetRelationships(ctx context.Context, entityID uuid.UUID) ([]*model.Relationship, error)
}

// Options restricts which relationships a traversal follows
type Options struct {
	MaxHops       int
	RelationTypes []model.RelationType // empty follows every type
	// Outgoing only follows relationships in their direction. By default
	// relationships are followed both ways, so an acquired company reaches
	// its acquirer.
	Outgoing bool
}

// BFS performs breadth-first search from a source entity. The source is
// the first result with distance 0.
func BFS(ctx context.Context, db GraphDB, sourceID uuid.UUID, opts Options) ([]*model.TraversalNode, error) {
	source, err := db.GetEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{sourceID: true}
	queue := []*model.TraversalNode{{
		Entity:   source,
		Distance: 0,
		Path:     []uuid.UUID{sourceID},
	}}

	var results []*model.TraversalNode
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		results = append(results, current)

		if current.Distance >= opts.MaxHops {
			continue
		}

		relationships, err := db.GetRelationships(ctx, current.Entity.ID)
		if err != nil {
			return nil, err
		}

		for _, relationship := range relationships {
			targetID, ok := opts.next(current.Entity.ID, relationship)
			if !ok || visited[targetID] {
				continue
			}

			target, err := db.GetEntity(ctx, targetID)
			if err != nil {
				continue
			}
			visited[targetID] = true

			queue = append(queue, &model.TraversalNode{
				Entity:   target,
				Distance: current.Distance + 1,
				Path:     extendPath(current.Path, targetID),
				Via:      relationship,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source entity
func DFS(ctx context.Context, db GraphDB, sourceID uuid.UUID, opts Options) ([]*model.TraversalNode, error) {
	source, err := db.GetEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	var results []*model.TraversalNode
	visited := make(map[uuid.UUID]bool)
	dfsRecursive(ctx, db, &model.TraversalNode{Entity: source, Path: []uuid.UUID{sourceID}}, opts, visited, &results)

	return results, ctx.Err()
}

func dfsRecursive(
	ctx context.Context,
	db GraphDB,
	current *model.TraversalNode,
	opts Options,
	visited map[uuid.UUID]bool,
	results *[]*model.TraversalNode,
) {
	visited[current.Entity.ID] = true
	*results = append(*results, current)

	if current.Distance >= opts.MaxHops || ctx.Err() != nil {
		return
	}

	relationships, err := db.GetRelationships(ctx, current.Entity.ID)
	if err != nil {
		return
	}

	for _, relationship := range relationships {
		targetID, ok := opts.next(current.Entity.ID, relationship)
		if !ok || visited[targetID] {
			continue
		}

		target, err := db.GetEntity(ctx, targetID)
		if err != nil {
			continue
		}

		dfsRecursive(ctx, db, &model.TraversalNode{
			Entity:   target,
			Distance: current.Distance + 1,
			Path:     extendPath(current.Path, targetID),
			Via:      relationship,
		}, opts, visited, results)
	}
}

// next returns the entity on the other side of the relationship
func (o Options) next(from uuid.UUID, relationship *model.Relationship) (uuid.UUID, bool) {
	if len(o.RelationTypes) > 0 {
		allowed := false
		for _, t := range o.RelationTypes {
			if relationship.Type == t {
				allowed = true
				break
			}
		}
		if !allowed {
			return uuid.Nil, false
		}
	}

	switch {
	case relationship.SourceEntityID == from:
		return relationship.TargetEntityID, true
	case !o.Outgoing && relationship.TargetEntityID == from:
		return relationship.SourceEntityID, true
	}
	return uuid.Nil, false
}

func extendPath(path []uuid.UUID, id uuid.UUID) []uuid.UUID {
	newPath := make([]uuid.UUID, len(path), len(path)+1)
	copy(newPath, path)
	return append(newPath, id)
}
