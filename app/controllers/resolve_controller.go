package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/billing-resolver/app/models"
	"github.com/billing-resolver/app/requests"
	"github.com/billing-resolver/app/responses"
	"github.com/billing-resolver/app/services"
	"github.com/billing-resolver/helpers/utils"
	"github.com/billing-resolver/internal/search"
)

// ResolveController exposes billing property resolution over HTTP. Each
// request gets its own resolver session so the normalization cache is
// shared across the rows of one upload and nothing else.
type ResolveController struct {
	searchClient      search.AddressClient
	properties        services.PropertyStore
	billingProperties services.BillingPropertyStore
	settings          services.SettingsStore
	cfg               services.ResolverConfig
	logger            *zap.Logger
	startedAt         time.Time
}

func NewResolveController(
	searchClient search.AddressClient,
	properties services.PropertyStore,
	billingProperties services.BillingPropertyStore,
	settings services.SettingsStore,
	cfg services.ResolverConfig,
	logger *zap.Logger,
) *ResolveController {
	return &ResolveController{
		searchClient:      searchClient,
		properties:        properties,
		billingProperties: billingProperties,
		settings:          settings,
		cfg:               cfg,
		logger:            logger,
		startedAt:         time.Now(),
	}
}

// Resolve handles POST /v1/billing/properties/resolve.
func (rc *ResolveController) Resolve(c *gin.Context) {
	start := time.Now()
	requestID := utils.GenerateShortID()

	var req requests.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "INVALID_REQUEST",
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestID: requestID,
		})
		return
	}

	resolver := services.NewBillingPropertyResolver(
		rc.searchClient, rc.properties, rc.billingProperties, rc.settings, rc.cfg, rc.logger)
	err := resolver.Init(c.Request.Context(), services.ResolverParams{
		TIN:              req.TIN,
		OrganizationID:   req.OrganizationID,
		ContextID:        req.ContextID,
		AddressTransform: req.AddressTransform,
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "RESOLVER_INIT_FAILED"
		var rerr *models.ResolveError
		if errors.As(err, &rerr) {
			status = http.StatusBadRequest
			code = rerr.Code
		}
		rc.logger.Error("resolver init failed",
			zap.String("request_id", requestID),
			zap.String("organizationId", req.OrganizationID),
			zap.Error(err))
		c.JSON(status, responses.ErrorResponse{
			Error:     code,
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestID: requestID,
		})
		return
	}

	results := make([]models.ResolutionResult, 0, len(req.Items))
	for _, item := range req.Items {
		results = append(results, resolver.Resolve(
			c.Request.Context(), item.Address, item.AddressMeta, item.UnitType, item.UnitName))
	}

	rc.logger.Info("resolve request served",
		zap.String("request_id", requestID),
		zap.String("organizationId", req.OrganizationID),
		zap.Int("items", len(req.Items)),
		zap.Duration("took", time.Since(start)))

	c.JSON(http.StatusOK, responses.ResolveResponse{
		Results:          results,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RequestID:        requestID,
	})
}

// HealthCheck handles the liveness endpoints.
func (rc *ResolveController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
		Services: map[string]string{
			"uptime": time.Since(rc.startedAt).Round(time.Second).String(),
		},
	})
}
