package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/clients/postgres"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

// SearchHistoryAdapter stores search history in Postgres
type SearchHistoryAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchHistoryAdapter creates a new search history adapter
func NewSearchHistoryAdapter(client *postgres.Client) repositories.SearchHistoryRepository {
	return &SearchHistoryAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Append inserts a search event
func (a *SearchHistoryAdapter) Append(ctx context.Context, event *entities.SearchEvent) error {
	if event == nil {
		return apperrors.NewInternalError("search event is nil", fmt.Errorf("search event is nil"))
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	filters, err := json.Marshal(event.Filters)
	if err != nil {
		return apperrors.NewInternalError("failed to encode search filters", err)
	}

	record := goqu.Record{
		"id":                event.ID,
		"user_id":           sql.NullString{String: event.UserID, Valid: event.UserID != ""},
		"query":             event.Query,
		"normalized_query":  event.NormalizedQuery,
		"content_type":      string(event.ContentType),
		"filters":           string(filters),
		"result_count":      event.ResultCount,
		"execution_time_ms": event.ExecutionTimeMs,
		"created_at":        event.Timestamp.UTC(),
	}

	query, args, err := a.db.Insert("search_history").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search history insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append search event", err)
	}
	return nil
}

// AddInteraction attaches an interaction to a stored search
func (a *SearchHistoryAdapter) AddInteraction(ctx context.Context, searchID string, interaction entities.Interaction) error {
	query, args, err := a.db.From("search_history").Select(goqu.L("1")).Where(goqu.Ex{"id": searchID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search lookup query", err)
	}
	var one int
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("search %s not found", searchID))
	}
	if err != nil {
		return apperrors.NewInternalError("failed to look up search", err)
	}

	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now()
	}
	record := goqu.Record{
		"search_id":        searchID,
		"result_id":        interaction.ResultID,
		"position":         interaction.Position,
		"interaction_type": string(interaction.InteractionType),
		"created_at":       interaction.Timestamp.UTC(),
	}
	query, args, err = a.db.Insert("search_interactions").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build interaction insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to add interaction", err)
	}
	return nil
}

// ListSince returns events at or after since, oldest first, with their interactions
func (a *SearchHistoryAdapter) ListSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error) {
	query, args, err := a.db.From("search_history").Select(
		"id", "user_id", "query", "normalized_query", "content_type", "filters",
		"result_count", "execution_time_ms", "created_at",
	).Where(goqu.C("created_at").Gte(since.UTC())).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build search history query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list search history", err)
	}
	defer rows.Close()

	var events []*entities.SearchEvent
	byID := make(map[string]*entities.SearchEvent)
	for rows.Next() {
		e := &entities.SearchEvent{}
		var userID, filters sql.NullString
		var contentType string
		if err := rows.Scan(
			&e.ID,
			&userID,
			&e.Query,
			&e.NormalizedQuery,
			&contentType,
			&filters,
			&e.ResultCount,
			&e.ExecutionTimeMs,
			&e.Timestamp,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		e.UserID = userID.String
		e.ContentType = entities.ContentType(contentType)
		if filters.Valid && filters.String != "" {
			if err := json.Unmarshal([]byte(filters.String), &e.Filters); err != nil {
				return nil, apperrors.NewInternalError("failed to decode search filters", err)
			}
		}
		events = append(events, e)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate search history", err)
	}

	if len(events) == 0 {
		return events, nil
	}
	if err := a.attachInteractions(ctx, since, byID); err != nil {
		return nil, err
	}
	return events, nil
}

func (a *SearchHistoryAdapter) attachInteractions(ctx context.Context, since time.Time, byID map[string]*entities.SearchEvent) error {
	query, args, err := a.db.From(goqu.T("search_interactions").As("si")).
		Join(goqu.T("search_history").As("sh"), goqu.On(goqu.Ex{"sh.id": goqu.I("si.search_id")})).
		Select("si.search_id", "si.result_id", "si.position", "si.interaction_type", "si.created_at").
		Where(goqu.I("sh.created_at").Gte(since.UTC())).
		Order(goqu.I("si.created_at").Asc()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build interactions query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to list interactions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var searchID, interactionType string
		var i entities.Interaction
		if err := rows.Scan(&searchID, &i.ResultID, &i.Position, &interactionType, &i.Timestamp); err != nil {
			return apperrors.NewInternalError("failed to scan interaction", err)
		}
		i.InteractionType = entities.InteractionType(interactionType)
		if e, ok := byID[searchID]; ok {
			e.Interactions = append(e.Interactions, i)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewInternalError("failed to iterate interactions", err)
	}
	return nil
}

// PurgeOlderThan deletes searches before cutoff along with their interactions
func (a *SearchHistoryAdapter) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	old := a.db.From("search_history").Select("id").Where(goqu.C("created_at").Lt(cutoff.UTC()))

	interactionsQuery, interactionsArgs, err := a.db.Delete("search_interactions").
		Where(goqu.C("search_id").In(old)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build interactions purge query", err)
	}
	historyQuery, historyArgs, err := a.db.Delete("search_history").
		Where(goqu.C("created_at").Lt(cutoff.UTC())).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build history purge query", err)
	}

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to begin purge transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, interactionsQuery, interactionsArgs...); err != nil {
		return 0, apperrors.NewInternalError("failed to purge interactions", err)
	}
	res, err := tx.ExecContext(ctx, historyQuery, historyArgs...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to purge search history", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to count purged searches", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewInternalError("failed to commit purge", err)
	}
	return int(removed), nil
}
