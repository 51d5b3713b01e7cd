package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/clients/postgres"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

// RelationshipAdapter reads popularity counts: venue regulars and blog views
type RelationshipAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRelationshipAdapter creates a new relationship adapter
func NewRelationshipAdapter(client *postgres.Client) repositories.RelationshipRepository {
	return &RelationshipAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func (a *RelationshipAdapter) RegularCount(ctx context.Context, venueID string) (int, error) {
	counts, err := a.RegularCounts(ctx, []string{venueID})
	if err != nil {
		return 0, err
	}
	return counts[venueID], nil
}

func (a *RelationshipAdapter) ViewCount(ctx context.Context, blogID string) (int, error) {
	counts, err := a.ViewCounts(ctx, []string{blogID})
	if err != nil {
		return 0, err
	}
	return counts[blogID], nil
}

// RegularCounts counts the users holding each venue as a regular spot
func (a *RelationshipAdapter) RegularCounts(ctx context.Context, venueIDs []string) (map[string]int, error) {
	if len(venueIDs) == 0 {
		return map[string]int{}, nil
	}

	ds := a.db.From("venue_regulars").
		Select(goqu.C("venue_id"), goqu.COUNT(goqu.DISTINCT("user_id"))).
		Where(goqu.Ex{"venue_id": venueIDs}).
		GroupBy("venue_id")

	return a.countsByID(ctx, ds, "regular counts")
}

// ViewCounts sums recorded views for each blog
func (a *RelationshipAdapter) ViewCounts(ctx context.Context, blogIDs []string) (map[string]int, error) {
	if len(blogIDs) == 0 {
		return map[string]int{}, nil
	}

	ds := a.db.From("blog_views").
		Select(goqu.C("blog_id"), goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{"blog_id": blogIDs}).
		GroupBy("blog_id")

	return a.countsByID(ctx, ds, "view counts")
}

func (a *RelationshipAdapter) countsByID(ctx context.Context, ds *goqu.SelectDataset, what string) (map[string]int, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build "+what+" query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load "+what, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, apperrors.NewInternalError("failed to scan "+what, err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate "+what, err)
	}
	return counts, nil
}
