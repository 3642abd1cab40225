// internal/workers/support/retrieve-context/handler.go
package retrievecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/metrics"
	"support-agent/internal/index"
	"support-agent/internal/models"
)

const (
	TaskType = "retrieve-context"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// OrderStore is the read side of the relational order store.
type OrderStore interface {
	GetOrdersForUser(ctx context.Context, email string) ([]models.Order, error)
	GetOrderByTracking(ctx context.Context, tracking string) (*models.Order, error)
	GetMostRecentOrderItemIDs(ctx context.Context, email string) ([]string, error)
}

// ProductIndex is the semantic index as seen by the router.
type ProductIndex interface {
	Query(ctx context.Context, text string, k int) ([]index.Hit, error)
	LookupByIDs(ids []string) []models.Product
	LookupByIDsRanked(ctx context.Context, ids []string, query string) ([]models.Product, error)
}

type Handler struct {
	config *Config
	orders OrderStore
	index  ProductIndex
	errors *apperrors.ErrorHandler
	logger Logger
}

func NewHandler(config *Config, orders OrderStore, idx ProductIndex, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		orders: orders,
		index:  idx,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewValidationError("invalid job variables", err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.Retrieve(ctx, input.Intent, input.Query, input.Entities, input.UserEmail)
	if err != nil {
		return nil, err
	}
	return &Output{DataSource: result.DataSource, Context: result.Context}, nil
}

// Retrieve dispatches on intent. Not-found outcomes are contexts, not errors;
// only order store faults are returned.
func (h *Handler) Retrieve(ctx context.Context, intent models.Intent, query string, ents models.EntityBag, userEmail string) (*models.RetrievalResult, error) {
	if strings.TrimSpace(userEmail) == "" {
		userEmail = h.config.DefaultUserEmail
	}

	var (
		result *models.RetrievalResult
		err    error
	)
	switch intent {
	case models.IntentOrderDetails:
		result, err = h.retrieveOrders(ctx, ents, userEmail)
	case models.IntentProductDetails:
		result = h.retrieveProducts(ctx, query)
	case models.IntentOrderProductDetails:
		result, err = h.retrieveHybrid(ctx, query, userEmail)
	default:
		result = &models.RetrievalResult{DataSource: models.DataSourceUnknown, Context: unknownIntentText}
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("context retrieved", map[string]interface{}{
		"intent":        intent,
		"dataSource":    result.DataSource,
		"contextLength": len(result.Context),
	})
	return result, nil
}

func (h *Handler) retrieveOrders(ctx context.Context, ents models.EntityBag, email string) (*models.RetrievalResult, error) {
	if tracking, ok := ents.Get(models.EntityTrackingNumber); ok {
		order, err := h.orders.GetOrderByTracking(ctx, tracking)
		if err != nil {
			return nil, storeError("get order by tracking", err)
		}
		if order == nil {
			return &models.RetrievalResult{
				DataSource: models.DataSourceSQL,
				Context:    formatTrackingMiss(tracking),
				Payload:    models.OrderPayload{Orders: []models.Order{}},
			}, nil
		}
		return &models.RetrievalResult{
			DataSource: models.DataSourceSQL,
			Context:    formatTrackedOrder(order),
			Payload:    models.OrderPayload{Orders: []models.Order{*order}},
		}, nil
	}

	orders, err := h.orders.GetOrdersForUser(ctx, email)
	if err != nil {
		return nil, storeError("get orders for user", err)
	}
	return &models.RetrievalResult{
		DataSource: models.DataSourceSQL,
		Context:    formatOrderHistory(email, orders),
		Payload:    models.OrderPayload{Orders: orders},
	}, nil
}

func (h *Handler) retrieveProducts(ctx context.Context, query string) *models.RetrievalResult {
	hits, err := h.index.Query(ctx, query, h.config.TopK)
	if err != nil {
		h.logger.Warn("semantic search failed", map[string]interface{}{
			"error": err,
		})
		return &models.RetrievalResult{
			DataSource: models.DataSourceVector,
			Context:    catalogUnavailable,
			Payload:    models.ProductPayload{Products: []models.Product{}},
		}
	}

	products := make([]models.Product, len(hits))
	for i, hit := range hits {
		products[i] = hit.Product
	}
	return &models.RetrievalResult{
		DataSource: models.DataSourceVector,
		Context:    formatProductHits(hits),
		Payload:    models.ProductPayload{Products: products},
	}
}

// retrieveHybrid joins the newest order's product IDs with current catalog
// entries. The two store reads are independent and run concurrently.
func (h *Handler) retrieveHybrid(ctx context.Context, query, email string) (*models.RetrievalResult, error) {
	var (
		ids    []string
		orders []models.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ids, err = h.orders.GetMostRecentOrderItemIDs(gctx, email)
		if err != nil {
			return storeError("get most recent order items", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		orders, err = h.orders.GetOrdersForUser(gctx, email)
		if err != nil {
			return storeError("get orders for user", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return &models.RetrievalResult{
			DataSource: models.DataSourceHybrid,
			Context:    formatNoPurchaseHistory(email),
			Payload:    models.HybridPayload{Orders: orders, Products: []models.Product{}},
		}, nil
	}

	products, err := h.index.LookupByIDsRanked(ctx, ids, query)
	if err != nil {
		h.logger.Warn("ranked lookup failed, using insertion order", map[string]interface{}{
			"error": err,
		})
		products = h.index.LookupByIDs(ids)
	}

	var recent *models.Order
	if len(orders) > 0 {
		recent = &orders[len(orders)-1]
	}

	return &models.RetrievalResult{
		DataSource: models.DataSourceHybrid,
		Context:    formatHybrid(recent, products),
		Payload:    models.HybridPayload{RecentOrder: recent, Orders: orders, Products: products},
	}, nil
}

func storeError(op string, err error) error {
	if _, ok := apperrors.AsStandardError(err); ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
