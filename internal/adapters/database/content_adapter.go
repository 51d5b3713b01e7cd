package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/clients/postgres"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

const defaultContentPageSize = 200

// ContentAdapter reads venues and blogs from the content service's database
type ContentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewContentAdapter creates a new content adapter
func NewContentAdapter(client *postgres.Client) repositories.ContentRepository {
	return &ContentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListVenues returns one page of venues ordered by id
func (a *ContentAdapter) ListVenues(ctx context.Context, filter repositories.ContentFilter) ([]*entities.Venue, error) {
	ds := a.db.From("venues").Select(
		"id", "name", "description", "category", "tags", "city", "country",
		"latitude", "longitude", "created_by", "is_published", "created_at", "updated_at",
	)
	ds = applyContentFilter(ds, filter, "updated_at")

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build venues query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list venues", err)
	}
	defer rows.Close()

	var venues []*entities.Venue
	for rows.Next() {
		v := &entities.Venue{}
		var description, category, city, country, createdBy sql.NullString
		var lat, lng sql.NullFloat64
		if err := rows.Scan(
			&v.ID,
			&v.Name,
			&description,
			&category,
			pq.Array(&v.Tags),
			&city,
			&country,
			&lat,
			&lng,
			&createdBy,
			&v.IsPublished,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan venue", err)
		}
		v.Description = description.String
		v.Category = category.String
		v.City = city.String
		v.Country = country.String
		v.CreatedBy = createdBy.String
		if lat.Valid && lng.Valid {
			v.Location = &entities.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate venues", err)
	}

	return venues, nil
}

// ListBlogs returns one page of blogs with their linked venues populated
func (a *ContentAdapter) ListBlogs(ctx context.Context, filter repositories.ContentFilter) ([]*entities.Blog, error) {
	ds := a.db.From("blogs").Select(
		"id", "title", "content", "excerpt", "author_id", "author_name", "category", "tags",
		"read_time_minutes", "is_published", "published_at", "created_at",
	)
	ds = applyContentFilter(ds, filter, "updated_at")

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build blogs query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list blogs", err)
	}
	defer rows.Close()

	var blogs []*entities.Blog
	byID := make(map[string]*entities.Blog)
	for rows.Next() {
		b := &entities.Blog{}
		var content, excerpt, authorName, category sql.NullString
		var readTime sql.NullInt64
		var publishedAt sql.NullTime
		if err := rows.Scan(
			&b.ID,
			&b.Title,
			&content,
			&excerpt,
			&b.AuthorID,
			&authorName,
			&category,
			pq.Array(&b.Tags),
			&readTime,
			&b.IsPublished,
			&publishedAt,
			&b.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan blog", err)
		}
		b.Content = content.String
		b.Excerpt = excerpt.String
		b.AuthorName = authorName.String
		b.Category = category.String
		b.ReadTimeMinutes = int(readTime.Int64)
		if publishedAt.Valid {
			t := publishedAt.Time
			b.PublishedAt = &t
		}
		blogs = append(blogs, b)
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate blogs", err)
	}

	if len(blogs) == 0 {
		return blogs, nil
	}
	if err := a.attachLinkedVenues(ctx, byID); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (a *ContentAdapter) attachLinkedVenues(ctx context.Context, byID map[string]*entities.Blog) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query, args, err := a.db.From(goqu.T("blog_venues").As("bv")).
		Join(goqu.T("venues").As("v"), goqu.On(goqu.Ex{"v.id": goqu.I("bv.venue_id")})).
		Select("bv.blog_id", "v.id", "v.name", "v.city").
		Where(goqu.Ex{"bv.blog_id": ids}).
		Order(goqu.I("bv.blog_id").Asc(), goqu.I("bv.position").Asc()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build linked venues query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to load linked venues", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blogID string
		var link entities.LinkedVenue
		var city sql.NullString
		if err := rows.Scan(&blogID, &link.VenueID, &link.VenueName, &city); err != nil {
			return apperrors.NewInternalError("failed to scan linked venue", err)
		}
		link.VenueCity = city.String
		if b, ok := byID[blogID]; ok {
			b.LinkedVenues = append(b.LinkedVenues, link)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewInternalError("failed to iterate linked venues", err)
	}
	return nil
}

func applyContentFilter(ds *goqu.SelectDataset, filter repositories.ContentFilter, updatedColumn string) *goqu.SelectDataset {
	if filter.PublishedOnly {
		ds = ds.Where(goqu.C("is_published").IsTrue())
	}
	if filter.UpdatedSince != nil {
		ds = ds.Where(goqu.C(updatedColumn).Gte(*filter.UpdatedSince))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultContentPageSize
	}
	ds = ds.Order(goqu.C("id").Asc()).Limit(uint(limit))
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}
	return ds
}
