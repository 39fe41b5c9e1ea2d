package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/application/service"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// actorKey is the gin context key holding the acting user ID.
const actorKey = "actor_user_id"

const exportDateLayout = "2006-01-02"

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService  service.ExpenseService
	approvalService service.ApprovalService
	ledgerService   service.LedgerService
	exporter        ExpenseExporter
	health          HealthFunc
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	approvalService service.ApprovalService,
	ledgerService service.LedgerService,
	exporter ExpenseExporter,
	health HealthFunc,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService:  expenseService,
		approvalService: approvalService,
		ledgerService:   ledgerService,
		exporter:        exporter,
		health:          health,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateExpenseRequest is the payload for recording a new expense. The payer
// is the acting user. Decimal fields accept JSON numbers or strings.
type CreateExpenseRequest struct {
	Title        string            `json:"title" binding:"required"`
	Description  string            `json:"description"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Currency     string            `json:"currency"`
	SplitType    string            `json:"split_type"`
	HasReceipt   bool              `json:"has_receipt"`
	Participants []string          `json:"participants"`
	Percentages  []float64         `json:"percentages"`
	Amounts      []decimal.Decimal `json:"amounts"`
}

// RejectRequest carries the rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// SettleRequest carries an optional payment amount; omitted means "pay the
// remainder of my share".
type SettleRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// BatchApproveRequest lists the expenses to approve in one go.
type BatchApproveRequest struct {
	ExpenseIDs []string `json:"expense_ids" binding:"required"`
}

// UpdateSettingsRequest carries the group approval policy knobs.
type UpdateSettingsRequest struct {
	AutoApproveLimit        decimal.Decimal `json:"auto_approve_limit"`
	ReceiptAutoApproveLimit decimal.Decimal `json:"receipt_auto_approve_limit"`
	RequireReceiptAbove     decimal.Decimal `json:"require_receipt_above"`
	AutoApproveRecurring    bool            `json:"auto_approve_recurring"`
	BatchNotifications      bool            `json:"batch_notifications"`
	NotificationTime        string          `json:"notification_time"`
}

// ExpenseResponse pairs an expense with its participants and, on creation,
// the approval outcome.
type ExpenseResponse struct {
	Expense      *entity.Expense              `json:"expense"`
	Participants []*entity.ExpenseParticipant `json:"participants,omitempty"`
	Approval     *service.ApprovalResult      `json:"approval,omitempty"`
}

func actor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, logger Logger, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, entity.ErrInvalidInput), errors.Is(err, entity.ErrAmountMismatch):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, entity.ErrNotMember), errors.Is(err, entity.ErrForbidden):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, entity.ErrInvalidState):
		status = http.StatusConflict
		msg = err.Error()
	default:
		logger.Error("Request failed", "error", err)
	}

	c.JSON(status, Response{Success: false, Error: msg})
}

// HealthCheck handles GET /health. With a health func wired it reports real
// component status; without one (tests) it answers a static liveness payload.
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.health != nil {
		status, healthy := h.health()
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, Response{Success: healthy, Data: status})
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateExpense handles POST /api/groups/:groupID/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	input := service.CreateExpenseInput{
		GroupID:            c.Param("groupID"),
		PaidByUserID:       actor(c),
		Title:              req.Title,
		Description:        req.Description,
		TotalAmount:        req.TotalAmount,
		Currency:           req.Currency,
		SplitType:          req.SplitType,
		HasReceipt:         req.HasReceipt,
		ParticipantUserIDs: req.Participants,
		SplitPercentages:   req.Percentages,
		SplitAmounts:       req.Amounts,
	}

	expense, approval, err := h.expenseService.CreateExpense(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    ExpenseResponse{Expense: expense, Approval: approval},
	})
}

// ListExpenses handles GET /api/groups/:groupID/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	var query struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	expenses, err := h.expenseService.ListGroupExpenses(c.Request.Context(), c.Param("groupID"), query.Limit, query.Offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// GetExpense handles GET /api/groups/:groupID/expenses/:expenseID
func (h *Handlers) GetExpense(c *gin.Context) {
	expense, participants, err := h.expenseService.GetExpense(c.Request.Context(), c.Param("expenseID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if expense.GroupID != c.Param("groupID") {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: entity.ErrNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ExpenseResponse{Expense: expense, Participants: participants},
	})
}

// ApproveExpense handles POST /api/groups/:groupID/expenses/:expenseID/approve
func (h *Handlers) ApproveExpense(c *gin.Context) {
	expense, err := h.approvalService.Approve(c.Request.Context(), c.Param("groupID"), c.Param("expenseID"), actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ExpenseResponse{Expense: expense}})
}

// RejectExpense handles POST /api/groups/:groupID/expenses/:expenseID/reject
func (h *Handlers) RejectExpense(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	expense, err := h.approvalService.Reject(c.Request.Context(), c.Param("groupID"), c.Param("expenseID"), actor(c), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ExpenseResponse{Expense: expense}})
}

// SettleExpense handles POST /api/groups/:groupID/expenses/:expenseID/settle
func (h *Handlers) SettleExpense(c *gin.Context) {
	var req SettleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
			return
		}
	}

	participant, err := h.expenseService.SettleParticipant(c.Request.Context(), c.Param("expenseID"), actor(c), req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: participant})
}

// BatchApprove handles POST /api/groups/:groupID/approvals/batch
func (h *Handlers) BatchApprove(c *gin.Context) {
	var req BatchApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	approved, err := h.approvalService.BatchApprove(c.Request.Context(), c.Param("groupID"), req.ExpenseIDs, actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"approved_count": approved, "requested_count": len(req.ExpenseIDs)},
	})
}

// PendingApprovals handles GET /api/groups/:groupID/approvals/pending
func (h *Handlers) PendingApprovals(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 50
	}

	pending, err := h.approvalService.PendingApprovals(c.Request.Context(), c.Param("groupID"), query.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: pending})
}

// ApprovalStats handles GET /api/groups/:groupID/approvals/stats
func (h *Handlers) ApprovalStats(c *gin.Context) {
	stats, err := h.approvalService.ApprovalStats(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// GetSettings handles GET /api/groups/:groupID/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.approvalService.GetSettings(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

// UpdateSettings handles PUT /api/groups/:groupID/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	settings := &entity.GroupApprovalSettings{
		GroupID:                 c.Param("groupID"),
		AutoApproveLimit:        req.AutoApproveLimit,
		ReceiptAutoApproveLimit: req.ReceiptAutoApproveLimit,
		RequireReceiptAbove:     req.RequireReceiptAbove,
		AutoApproveRecurring:    req.AutoApproveRecurring,
		BatchNotifications:      req.BatchNotifications,
		NotificationTime:        req.NotificationTime,
	}

	if err := h.approvalService.UpdateSettings(c.Request.Context(), actor(c), settings); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

// GroupBalances handles GET /api/groups/:groupID/balances
func (h *Handlers) GroupBalances(c *gin.Context) {
	balances, err := h.ledgerService.GroupBalances(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: balances})
}

// UserBalance handles GET /api/groups/:groupID/balances/me
func (h *Handlers) UserBalance(c *gin.Context) {
	balance, err := h.ledgerService.UserBalance(c.Request.Context(), c.Param("groupID"), actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"user_id": actor(c), "balance": balance},
	})
}

// GroupSummary handles GET /api/groups/:groupID/summary
func (h *Handlers) GroupSummary(c *gin.Context) {
	summary, err := h.ledgerService.GroupSummary(c.Request.Context(), c.Param("groupID"), actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// SettlementPlan handles GET /api/groups/:groupID/settlement-plan
func (h *Handlers) SettlementPlan(c *gin.Context) {
	plan, err := h.ledgerService.SettlementPlan(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: plan})
}

// ExportExpenses handles GET /api/groups/:groupID/export
func (h *Handlers) ExportExpenses(c *gin.Context) {
	start, err := parseExportDate(c.Query("start"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid start date, want YYYY-MM-DD"})
		return
	}
	end, err := parseExportDate(c.Query("end"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid end date, want YYYY-MM-DD"})
		return
	}

	groupID := c.Param("groupID")
	fileName := fmt.Sprintf("expenses_%s_%s.xlsx", groupID, time.Now().Format(exportDateLayout))

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := h.exporter.ExportGroupExpenses(c.Request.Context(), groupID, start, end, c.Writer); err != nil {
		h.logger.Error("Export failed", "group_id", groupID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
}

// parseExportDate parses a YYYY-MM-DD bound; an end bound is pushed to the
// end of its day so the range is inclusive.
func parseExportDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(exportDateLayout, value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
