package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gracepoint/budget_backend/config"
	"github.com/gracepoint/budget_backend/middlewares"
	"github.com/gracepoint/budget_backend/models"
	"github.com/gracepoint/budget_backend/utils"
	"github.com/gracepoint/budget_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("budget-backend")

// RateLimiter is a fixed-window limiter backed by Redis, keyed by client IP.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()
	ctx := c.Request.Context()

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		// Redis down: fail open, the limiter is an optimization.
		c.Next()
		return
	}
	if count == 1 {
		rl.client.Expire(ctx, key, rl.window)
	}
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Next()
}

func decimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// respondError maps domain errors onto HTTP statuses: unknown transition →
// 409, missing row → 404, anything the caller got wrong → 400.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrTransitionNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, workflow.ErrIdempotencyInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "operation already in progress, retry shortly"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
}

func idParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input loginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}

		user, err := models.GetUserByEmail(c.Request.Context(), input.Email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if user.IsActive != nil && !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account disabled"})
			return
		}
		if err := utils.ComparePassword(user.Password, input.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.OrganizationId, user.Name, string(user.Role))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		user, err := models.GetUser(c.Request.Context(), userId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.ListUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func createMinistryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMinistry
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		ministry, err := models.CreateMinistry(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ministry)
	}
}

func updateMinistryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewMinistry
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		ministry, err := models.UpdateMinistry(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ministry)
	}
}

func toggleMinistryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input struct {
			IsActive *bool `json:"is_active" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		ministry, err := models.ToggleMinistryActive(c.Request.Context(), id, *input.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ministry)
	}
}

func listMinistriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ministries, err := models.ListMinistries(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ministries)
	}
}

func createFiscalYearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFiscalYear
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		fiscalYear, err := models.CreateFiscalYear(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, fiscalYear)
	}
}

func updateFiscalYearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewFiscalYear
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		fiscalYear, err := models.UpdateFiscalYear(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, fiscalYear)
	}
}

func listFiscalYearsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fiscalYears, err := models.ListFiscalYears(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, fiscalYears)
	}
}

func expenseFilterFromQuery(c *gin.Context) models.ExpenseRequestFilter {
	var filter models.ExpenseRequestFilter
	filter.Status = models.ExpenseStatus(c.Query("status"))
	filter.MinistryId, _ = strconv.Atoi(c.Query("ministry_id"))
	filter.FiscalYearId, _ = strconv.Atoi(c.Query("fiscal_year_id"))
	filter.RequesterId, _ = strconv.Atoi(c.Query("requester_id"))
	filter.Search = c.Query("search")
	if v := c.Query("date_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateFrom = &t
		}
	}
	if v := c.Query("date_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateTo = &t
		}
	}
	return filter
}

func createExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewExpenseRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		expense, err := models.CreateExpenseRequest(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, expense)
	}
}

func listExpensesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(config.SearchLimit)))
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}
		connection, err := models.PaginateExpenseRequests(c.Request.Context(), limit, after, expenseFilterFromQuery(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func expenseStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := models.GetExpenseStatistics(c.Request.Context(), expenseFilterFromQuery(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func reviewQueueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		queue, err := models.ListReviewQueue(c.Request.Context(), c.Param("stage"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, queue)
	}
}

func getExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		detail, err := models.GetExpenseRequestDetail(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func updateExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewExpenseRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		expense, err := models.UpdateExpenseRequest(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

func deleteExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.DeleteExpenseRequest(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type transitionInput struct {
	Notes            string `json:"notes"`
	Reason           string `json:"reason"`
	PaymentReference string `json:"payment_reference"`
}

func expenseTransitionHandler(fn func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input transitionInput
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				respondBindError(c, err)
				return
			}
		}
		expense, err := fn(c.Request.Context(), id, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

func createAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAllocationRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		allocation, err := models.CreateAllocationRequest(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, allocation)
	}
}

func listAllocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.AllocationRequestFilter
		filter.Status = models.AllocationStatus(c.Query("status"))
		filter.MinistryId, _ = strconv.Atoi(c.Query("ministry_id"))
		filter.FiscalYearId, _ = strconv.Atoi(c.Query("fiscal_year_id"))
		allocations, err := models.ListAllocationRequests(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocations)
	}
}

func getAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		allocation, err := models.GetAllocationRequest(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocation)
	}
}

func updateAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewAllocationRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		allocation, err := models.UpdateAllocationRequest(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocation)
	}
}

func deleteAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.DeleteAllocationRequest(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func submitAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		allocation, err := workflow.SubmitAllocationForReview(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocation)
	}
}

type approveAllocationInput struct {
	ApprovedAmount string `json:"approved_amount" binding:"required"`
	Notes          string `json:"notes"`
}

func approveAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input approveAllocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		amount, err := decimalFromString(input.ApprovedAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approved_amount"})
			return
		}
		allocation, err := workflow.ApproveAllocation(c.Request.Context(), id, amount, input.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocation)
	}
}

func denyAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input transitionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		allocation, err := workflow.DenyAllocation(c.Request.Context(), id, input.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocation)
	}
}

func cancelAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input transitionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		allocation, err := workflow.CancelAllocation(c.Request.Context(), id, input.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocation)
	}
}

func listBudgetAllocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fiscalYearId, _ := strconv.Atoi(c.Query("fiscal_year_id"))
		allocations, err := models.ListBudgetAllocations(c.Request.Context(), fiscalYearId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocations)
	}
}

func organizationSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fiscalYearId, err := strconv.Atoi(c.Param("fiscalYearId"))
		if err != nil || fiscalYearId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fiscal year id"})
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "organizationSummary")
		defer span.End()
		summary, err := workflow.GetOrganizationSummary(ctx, fiscalYearId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func ministrySummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fiscalYearId, err := strconv.Atoi(c.Param("fiscalYearId"))
		if err != nil || fiscalYearId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fiscal year id"})
			return
		}
		ministryId, err := strconv.Atoi(c.Param("ministryId"))
		if err != nil || ministryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ministry id"})
			return
		}
		summary, err := workflow.GetMinistrySummary(c.Request.Context(), ministryId, fiscalYearId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func budgetAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fiscalYearId, err := strconv.Atoi(c.Param("fiscalYearId"))
		if err != nil || fiscalYearId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fiscal year id"})
			return
		}
		alerts, err := workflow.GetBudgetAlerts(c.Request.Context(), fiscalYearId, workflow.DefaultAlertThresholds())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

func historiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		referenceId, err := strconv.Atoi(c.Param("referenceId"))
		if err != nil || referenceId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference id"})
			return
		}
		histories, err := models.GetHistories(c.Request.Context(), c.Param("referenceType"), referenceId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	}
}

func verifyHistoryChainHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		referenceId, err := strconv.Atoi(c.Param("referenceId"))
		if err != nil || referenceId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference id"})
			return
		}
		verification, err := models.VerifyHistoryChain(c.Request.Context(), c.Param("referenceType"), referenceId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, verification)
	}
}

func statusMetadataHandler() gin.HandlerFunc {
	type entry struct {
		Status string            `json:"status"`
		Meta   models.StatusMeta `json:"meta"`
	}
	return func(c *gin.Context) {
		expense := make([]entry, 0, len(models.AllExpenseStatuses))
		for _, s := range models.AllExpenseStatuses {
			expense = append(expense, entry{Status: string(s), Meta: s.Meta()})
		}
		allocation := make([]entry, 0, len(models.AllAllocationStatuses))
		for _, s := range models.AllAllocationStatuses {
			allocation = append(allocation, entry{Status: string(s), Meta: s.Meta()})
		}
		c.JSON(http.StatusOK, gin.H{
			"expense_statuses":    expense,
			"allocation_statuses": allocation,
		})
	}
}

func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		for _, ginErr := range c.Errors {
			correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.Request.URL.Path,
				"correlation_id": correlationId,
			}).Error(ginErr.Error())
		}
	}
}

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler())

	authed := r.Group("/", middlewares.RequireAuth())
	authed.GET("/auth/me", meHandler())

	authed.GET("/users", listUsersHandler())
	authed.POST("/users", middlewares.RequireRole(), createUserHandler()) // admin only

	authed.GET("/ministries", listMinistriesHandler())
	authed.POST("/ministries", middlewares.RequireRole(), createMinistryHandler())
	authed.PUT("/ministries/:id", middlewares.RequireRole(), updateMinistryHandler())
	authed.PUT("/ministries/:id/active", middlewares.RequireRole(), toggleMinistryHandler())

	authed.GET("/fiscal-years", listFiscalYearsHandler())
	authed.POST("/fiscal-years", middlewares.RequireRole(), createFiscalYearHandler())
	authed.PUT("/fiscal-years/:id", middlewares.RequireRole(), updateFiscalYearHandler())

	authed.POST("/expenses", createExpenseHandler())
	authed.GET("/expenses", listExpensesHandler())
	authed.GET("/expenses/statistics", expenseStatisticsHandler())
	authed.GET("/expenses/queues/:stage", reviewQueueHandler())
	authed.GET("/expenses/:id", getExpenseHandler())
	authed.PUT("/expenses/:id", updateExpenseHandler())
	authed.DELETE("/expenses/:id", deleteExpenseHandler())

	authed.POST("/expenses/:id/submit", expenseTransitionHandler(
		func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error) {
			return workflow.SubmitExpenseForReview(ctx, id)
		}))
	authed.POST("/expenses/:id/leader-approve", middlewares.RequireRole(models.UserRoleLeader), expenseTransitionHandler(
		func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error) {
			return workflow.LeaderApproveExpense(ctx, id, input.Notes)
		}))
	authed.POST("/expenses/:id/leader-deny", middlewares.RequireRole(models.UserRoleLeader), expenseTransitionHandler(
		func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error) {
			return workflow.LeaderDenyExpense(ctx, id, input.Notes)
		}))
	authed.POST("/expenses/:id/treasury-approve", middlewares.RequireRole(models.UserRoleTreasurer), expenseTransitionHandler(
		func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error) {
			return workflow.TreasuryApproveExpense(ctx, id, input.Notes)
		}))
	authed.POST("/expenses/:id/treasury-deny", middlewares.RequireRole(models.UserRoleTreasurer), expenseTransitionHandler(
		func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error) {
			return workflow.TreasuryDenyExpense(ctx, id, input.Notes)
		}))
	authed.POST("/expenses/:id/process-payment", middlewares.RequireRole(models.UserRoleFinance), expenseTransitionHandler(
		func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error) {
			return workflow.ProcessExpensePayment(ctx, id, input.PaymentReference, input.Notes)
		}))
	authed.POST("/expenses/:id/cancel", expenseTransitionHandler(
		func(ctx context.Context, id int, input transitionInput) (*models.ExpenseRequest, error) {
			return workflow.CancelExpense(ctx, id, input.Reason)
		}))

	authed.POST("/allocations", createAllocationHandler())
	authed.GET("/allocations", listAllocationsHandler())
	authed.GET("/allocations/:id", getAllocationHandler())
	authed.PUT("/allocations/:id", updateAllocationHandler())
	authed.DELETE("/allocations/:id", deleteAllocationHandler())
	authed.POST("/allocations/:id/submit", submitAllocationHandler())
	authed.POST("/allocations/:id/approve", middlewares.RequireRole(models.UserRoleTreasurer, models.UserRoleFinance), approveAllocationHandler())
	authed.POST("/allocations/:id/deny", middlewares.RequireRole(models.UserRoleTreasurer, models.UserRoleFinance), denyAllocationHandler())
	authed.POST("/allocations/:id/cancel", cancelAllocationHandler())

	authed.GET("/budget/allocations", listBudgetAllocationsHandler())
	authed.GET("/budget/summary/:fiscalYearId", organizationSummaryHandler())
	authed.GET("/budget/summary/:fiscalYearId/ministries/:ministryId", ministrySummaryHandler())
	authed.GET("/budget/alerts/:fiscalYearId", budgetAlertsHandler())

	authed.GET("/metadata/statuses", statusMetadataHandler())

	authed.GET("/histories/:referenceType/:referenceId", historiesHandler())
	authed.GET("/histories/:referenceType/:referenceId/verify", verifyHistoryChainHandler())

	registerUploadRoutes(authed)
	registerExportRoutes(authed)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDRESS")})
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateDatabase(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info(fmt.Sprintf("listening on http://localhost:%s/", port))
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
