package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	loadSql "github.com/siherrmann/retriever/sql"
)

// representativeRowLimit caps how many example rows accompany an
// aggregate answer
const representativeRowLimit = 5

// AnalyticsDBHandlerFunctions defines the interface for analytics
// database operations.
type AnalyticsDBHandlerFunctions interface {
	Aggregate(ctx context.Context, accountID uuid.UUID, metric model.MetricHint, entityTypes []model.EntityType, window model.TimeWindow) (*model.AggregateValue, error)
}

// AnalyticsDBHandler answers structured queries from the documents
// table: exact counts per entity type plus a few representative rows,
// ordered oldest or newest first depending on the metric.
type AnalyticsDBHandler struct {
	db *helper.Database
}

// NewAnalyticsDBHandler creates a new analytics database handler.
// It requires the documents table, so the documents handler must be
// initialized first. If force is true, it will reload the SQL functions
// even if they already exist.
func NewAnalyticsDBHandler(db *helper.Database, force bool) (*AnalyticsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	analyticsDbHandler := &AnalyticsDBHandler{
		db: db,
	}

	err := loadSql.LoadAnalyticsSql(analyticsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load analytics sql", err)
	}

	db.Logger.Info("Initialized AnalyticsDBHandler")

	return analyticsDbHandler, nil
}

// Aggregate computes the structured answer for an account: total count,
// per-type counts and representative rows. The "first" metric orders the
// rows oldest first, every other metric newest first.
func (h *AnalyticsDBHandler) Aggregate(ctx context.Context, accountID uuid.UUID, metric model.MetricHint, entityTypes []model.EntityType, window model.TimeWindow) (*model.AggregateValue, error) {
	value := &model.AggregateValue{
		Metric: metric,
		ByType: map[model.EntityType]int64{},
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_document_counts($1, $2, $3, $4)`,
		accountID,
		entityTypesParam(entityTypes),
		window.After,
		window.Before,
	)
	if err != nil {
		return nil, helper.NewError("query counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityType string
		var total int64
		err := rows.Scan(&entityType, &total)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		value.ByType[model.EntityType(entityType)] = total
		value.Count += total
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	value.Rows, err = h.selectRepresentativeRows(ctx, accountID, metric, entityTypes, window)
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (h *AnalyticsDBHandler) selectRepresentativeRows(ctx context.Context, accountID uuid.UUID, metric model.MetricHint, entityTypes []model.EntityType, window model.TimeWindow) ([]model.AggregateRow, error) {
	oldestFirst := metric == model.MetricFirst

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_representative_documents($1, $2, $3, $4, $5, $6)`,
		accountID,
		entityTypesParam(entityTypes),
		window.After,
		window.Before,
		oldestFirst,
		representativeRowLimit,
	)
	if err != nil {
		return nil, helper.NewError("query representative rows", err)
	}
	defer rows.Close()

	var results []model.AggregateRow
	for rows.Next() {
		row := model.AggregateRow{}
		var entityType string

		err := rows.Scan(
			&row.DocumentRID,
			&entityType,
			&row.Title,
			&row.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		row.EntityType = model.EntityType(entityType)
		results = append(results, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}
