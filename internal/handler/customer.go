package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-admin/internal/lifecycle"
	"github.com/iliyamo/storefront-admin/internal/logger"
	"github.com/iliyamo/storefront-admin/internal/middleware"
	"github.com/iliyamo/storefront-admin/internal/repository"
)

// Lifecycle is the orchestrator surface used by the admin endpoints.
type Lifecycle interface {
	Provision(ctx context.Context, in lifecycle.ProvisionInput) (*lifecycle.Result, error)
	Update(ctx context.Context, in lifecycle.UpdateInput) (*lifecycle.Result, error)
	SetEntitlements(ctx context.Context, customerID string, desired []string) (*lifecycle.Result, error)
	UpdateEntitlementNotes(ctx context.Context, customerID, productID string, notes *string) (*lifecycle.Result, error)
	Deprovision(ctx context.Context, customerID string) (*lifecycle.Result, error)
	Get(ctx context.Context, customerID string) (*lifecycle.CustomerView, error)
}

// LifecycleHandler serves /admin/customer.
type LifecycleHandler struct {
	Lifecycle Lifecycle
	Timeout   time.Duration
}

// NewLifecycleHandler returns a handler that bounds every call by timeout.
func NewLifecycleHandler(l Lifecycle, timeout time.Duration) *LifecycleHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LifecycleHandler{Lifecycle: l, Timeout: timeout}
}

// ----- DTOs -----

type customerData struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=8,max=128"`
}

type provisionReq struct {
	CustomerData customerData `json:"customerData"`
	ProductIDs   []string     `json:"productIds" validate:"max=500,dive,max=64"`
}

type updateReq struct {
	CustomerID       string   `json:"customerId" validate:"required,max=128"`
	CustomerName     *string  `json:"customerName" validate:"omitempty,max=255"`
	CustomerEmail    *string  `json:"customerEmail" validate:"omitempty,email,max=255"`
	ProductsToAdd    []string `json:"productsToAdd" validate:"max=500,dive,max=64"`
	ProductsToRemove []string `json:"productsToRemove" validate:"max=500,dive,max=64"`
}

type deprovisionReq struct {
	CustomerID string `json:"customerId" validate:"required,max=128"`
}

type setEntitlementsReq struct {
	CustomerID string   `json:"customerId" validate:"required,max=128"`
	ProductIDs []string `json:"productIds" validate:"required,max=500,dive,max=64"`
}

type notesReq struct {
	CustomerID string  `json:"customerId" validate:"required,max=128"`
	ProductID  string  `json:"productId" validate:"required,max=64"`
	Notes      *string `json:"notes" validate:"omitempty,max=2000"`
}

type lifecycleResp struct {
	Success    bool                    `json:"success"`
	CustomerID string                  `json:"customerId"`
	Steps      []lifecycle.StepOutcome `json:"steps"`
}

// Provision handles POST /admin/customer/provision.
func (h *LifecycleHandler) Provision(c echo.Context) error {
	var req provisionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.Lifecycle.Provision(ctx, lifecycle.ProvisionInput{
		Name:              req.CustomerData.Name,
		Email:             req.CustomerData.Email,
		InitialCredential: req.CustomerData.Password,
		ProductIDs:        req.ProductIDs,
	})
	if err != nil {
		return writeLifecycleError(c, res, err)
	}
	return c.JSON(http.StatusCreated, lifecycleResp{Success: true, CustomerID: res.CustomerID, Steps: res.Steps})
}

// Update handles POST /admin/customer/update.
func (h *LifecycleHandler) Update(c echo.Context) error {
	var req updateReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.Lifecycle.Update(ctx, lifecycle.UpdateInput{
		CustomerID:       req.CustomerID,
		Name:             req.CustomerName,
		Email:            req.CustomerEmail,
		ProductsToAdd:    req.ProductsToAdd,
		ProductsToRemove: req.ProductsToRemove,
	})
	if err != nil {
		return writeLifecycleError(c, res, err)
	}
	return c.JSON(http.StatusOK, lifecycleResp{Success: true, CustomerID: res.CustomerID, Steps: res.Steps})
}

// SetEntitlements handles POST /admin/customer/entitlements.  The body's
// productIds becomes the customer's full entitlement set.
func (h *LifecycleHandler) SetEntitlements(c echo.Context) error {
	var req setEntitlementsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.Lifecycle.SetEntitlements(ctx, req.CustomerID, req.ProductIDs)
	if err != nil {
		return writeLifecycleError(c, res, err)
	}
	return c.JSON(http.StatusOK, lifecycleResp{Success: true, CustomerID: res.CustomerID, Steps: res.Steps})
}

// UpdateNotes handles POST /admin/customer/entitlement/notes.
func (h *LifecycleHandler) UpdateNotes(c echo.Context) error {
	var req notesReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.Lifecycle.UpdateEntitlementNotes(ctx, req.CustomerID, req.ProductID, req.Notes)
	if err != nil {
		return writeLifecycleError(c, res, err)
	}
	return c.JSON(http.StatusOK, lifecycleResp{Success: true, CustomerID: res.CustomerID, Steps: res.Steps})
}

// Deprovision handles POST /admin/customer/deprovision.
func (h *LifecycleHandler) Deprovision(c echo.Context) error {
	var req deprovisionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.Lifecycle.Deprovision(ctx, req.CustomerID)
	if err != nil {
		return writeLifecycleError(c, res, err)
	}
	return c.JSON(http.StatusOK, lifecycleResp{Success: true, CustomerID: res.CustomerID, Steps: res.Steps})
}

// Get handles GET /admin/customer/:id.
func (h *LifecycleHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	view, err := h.Lifecycle.Get(ctx, c.Param("id"))
	if err != nil {
		return writeLifecycleError(c, nil, err)
	}
	return c.JSON(http.StatusOK, view)
}

// writeLifecycleError maps orchestrator errors to HTTP responses:
// invalid input 400, unknown customer or entitlement 404, any other step
// failure 500 with the failing step, what had committed and what was
// left behind.  Store and provider messages stay in the log; the body
// names the failure by code only.
func writeLifecycleError(c echo.Context, res *lifecycle.Result, err error) error {
	var se *lifecycle.StepError
	switch {
	case errors.Is(err, lifecycle.ErrInvalidInput):
		body := echo.Map{"error": err.Error(), "code": "InvalidInput"}
		if res != nil {
			body["steps"] = res.Steps
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, lifecycle.ErrCustomerNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found", "code": "NotFound"})
	case errors.As(err, &se):
		status := http.StatusInternalServerError
		msg := fmt.Sprintf("%s: step %s failed", se.Code, se.Step)
		if errors.Is(err, repository.ErrNotFound) &&
			(se.Code == lifecycle.CodeCustomerUpdateFailed || se.Code == lifecycle.CodeNotesUpdateFailed) {
			status = http.StatusNotFound
			msg = fmt.Sprintf("%s: %s not found", se.Code, se.Entity)
		}
		if status == http.StatusInternalServerError {
			logFailure(c, err)
		}
		committed := make([]string, len(se.Committed))
		for i, s := range se.Committed {
			committed[i] = string(s)
		}
		body := echo.Map{
			"error":     msg,
			"code":      string(se.Code),
			"step":      string(se.Step),
			"entity":    se.Entity,
			"committed": committed,
		}
		if se.CustomerID != "" {
			body["customerId"] = se.CustomerID
		}
		if se.Residual != "" {
			body["residual"] = se.Residual
		}
		if res != nil {
			body["steps"] = publicSteps(res.Steps, se.Code)
		}
		return c.JSON(status, body)
	}

	logFailure(c, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// publicSteps replaces the error text of failed steps with code.
func publicSteps(steps []lifecycle.StepOutcome, code lifecycle.Code) []lifecycle.StepOutcome {
	out := make([]lifecycle.StepOutcome, len(steps))
	for i, s := range steps {
		if s.Error != "" {
			s.Error = string(code)
		}
		out[i] = s
	}
	return out
}

func logFailure(c echo.Context, err error) {
	fields := []zap.Field{zap.Error(err)}
	if p, ok := middleware.PrincipalFrom(c); ok {
		fields = append(fields, zap.String("principal", p.String()))
	}
	logger.FromContext(c.Request().Context()).Error("admin request failed", fields...)
}
