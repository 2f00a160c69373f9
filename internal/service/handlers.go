// Package service contains HTTP handler implementations for the DLC store API endpoints.
// It orchestrates request parsing, calls the underlying business logic in the app package,
// maps errors (including database-specific errors) to HTTP statuses, and writes every reply
// as a models.Response envelope.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"dlc_store/internal/app"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/auth"
	"dlc_store/internal/pkg/logger"
)

const requestTimeout = 10 * time.Second

// Messages carried by failed envelopes.
const (
	msgInvalidCredentials = "invalid email or password"
	msgMissingCredentials = "missing email or password"
	msgMissingFields      = "missing email, username or password"
	msgUserExists         = "user with this email already exists"
	msgNotAuthorized      = "not authorized"
	msgProductNotFound    = "product not found"
	msgOrderNotFound      = "order not found"
	msgUserNotFound       = "user not found"
	msgInvalidProductID   = "invalid product id"
	msgEmptyOrder         = "order has no items"
	msgInvalidQuantity    = "quantity must be positive"
	msgOutOfStock         = "product is out of stock"
	msgInvalidOrder       = "order cannot be stored"
	msgInternal           = "internal server error"
)

// handlers aggregates dependencies needed by HTTP handlers,
// including the application business logic and logger.
type handlers struct {
	app *app.App
	log *logger.Logger
}

// newHandlers initializes a new handlers instance with the provided app and logger dependencies.
func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l}
}

// loginHandler authenticates a customer by email and password and replies with the user and a token.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var loginRequest models.LoginRequest
	if err := readJSON(req, &loginRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := handlers.app.ProcessLogin(ctx, loginRequest)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingCredentials):
			writeErrorResponse(res, msgMissingCredentials, http.StatusBadRequest)
		case errors.Is(err, app.ErrInvalidCredentials):
			writeErrorResponse(res, msgInvalidCredentials, http.StatusUnauthorized)
		default:
			handlers.internalError(res, "login", err)
		}
		return
	}

	writeResponse(res, http.StatusOK, models.OK(*payload))
}

// registerHandler creates a customer account and signs it in.
func (handlers *handlers) registerHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var registerRequest models.RegisterRequest
	if err := readJSON(req, &registerRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := handlers.app.ProcessRegister(ctx, registerRequest)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingRegistration):
			writeErrorResponse(res, msgMissingFields, http.StatusBadRequest)
		case errors.Is(err, app.ErrUserExists):
			writeErrorResponse(res, msgUserExists, http.StatusConflict)
		default:
			handlers.internalError(res, "register", err)
		}
		return
	}

	writeResponse(res, http.StatusOK, models.OK(*payload))
}

// currentUserHandler returns the customer identified by the bearer token.
func (handlers *handlers) currentUserHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	userID, ok := auth.UserID(req.Context())
	if !ok {
		writeErrorResponse(res, msgNotAuthorized, http.StatusUnauthorized)
		return
	}

	user, err := handlers.app.ProcessCurrentUser(ctx, userID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeErrorResponse(res, msgUserNotFound, http.StatusUnauthorized)
			return
		}
		handlers.internalError(res, "current user", err)
		return
	}

	writeResponse(res, http.StatusOK, models.OK(*user))
}

// listProductsHandler returns the catalog narrowed by the optional category and search query parameters.
func (handlers *handlers) listProductsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	query := req.URL.Query()
	products, err := handlers.app.ProcessListProducts(ctx, query.Get("category"), query.Get("search"))
	if err != nil {
		handlers.internalError(res, "list products", err)
		return
	}

	writeResponse(res, http.StatusOK, models.OK(products))
}

func (handlers *handlers) getProductHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := strconv.Atoi(chi.URLParam(req, "id"))
	if err != nil {
		writeErrorResponse(res, msgInvalidProductID, http.StatusBadRequest)
		return
	}

	product, err := handlers.app.ProcessGetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeErrorResponse(res, msgProductNotFound, http.StatusNotFound)
			return
		}
		handlers.internalError(res, "get product", err)
		return
	}

	writeResponse(res, http.StatusOK, models.OK(*product))
}

func (handlers *handlers) searchHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	products, err := handlers.app.ProcessSearch(ctx, req.URL.Query().Get("q"))
	if err != nil {
		handlers.internalError(res, "search", err)
		return
	}

	writeResponse(res, http.StatusOK, models.OK(products))
}

func (handlers *handlers) categoriesHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	categories, err := handlers.app.ProcessCategories(ctx)
	if err != nil {
		handlers.internalError(res, "categories", err)
		return
	}

	writeResponse(res, http.StatusOK, models.OK(categories))
}

// createOrderHandler places an order for the authenticated customer.
// Prices are taken from the catalog; the order is returned in the processing state.
func (handlers *handlers) createOrderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	userID, ok := auth.UserID(req.Context())
	if !ok {
		writeErrorResponse(res, msgNotAuthorized, http.StatusUnauthorized)
		return
	}

	var orderRequest models.OrderRequest
	if err := readJSON(req, &orderRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	var pgError *pgconn.PgError
	order, err := handlers.app.ProcessCreateOrder(ctx, userID, orderRequest)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyOrder):
			writeErrorResponse(res, msgEmptyOrder, http.StatusBadRequest)
		case errors.Is(err, app.ErrInvalidQuantity):
			writeErrorResponse(res, msgInvalidQuantity, http.StatusBadRequest)
		case errors.Is(err, app.ErrUnknownProduct):
			writeErrorResponse(res, msgProductNotFound, http.StatusBadRequest)
		case errors.Is(err, app.ErrOutOfStock):
			writeErrorResponse(res, msgOutOfStock, http.StatusBadRequest)
		case errors.As(err, &pgError) && (pgError.Code == pgerrcode.CheckViolation || pgError.Code == pgerrcode.ForeignKeyViolation):
			writeErrorResponse(res, msgInvalidOrder, http.StatusBadRequest)
		default:
			handlers.internalError(res, "create order", err)
		}
		return
	}

	writeResponse(res, http.StatusOK, models.OK(*order))
}

func (handlers *handlers) listOrdersHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	userID, ok := auth.UserID(req.Context())
	if !ok {
		writeErrorResponse(res, msgNotAuthorized, http.StatusUnauthorized)
		return
	}

	orders, err := handlers.app.ProcessListOrders(ctx, userID)
	if err != nil {
		handlers.internalError(res, "list orders", err)
		return
	}

	writeResponse(res, http.StatusOK, models.OK(orders))
}

func (handlers *handlers) getOrderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	userID, ok := auth.UserID(req.Context())
	if !ok {
		writeErrorResponse(res, msgNotAuthorized, http.StatusUnauthorized)
		return
	}

	order, err := handlers.app.ProcessGetOrder(ctx, userID, chi.URLParam(req, "id"))
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeErrorResponse(res, msgOrderNotFound, http.StatusNotFound)
			return
		}
		handlers.internalError(res, "get order", err)
		return
	}

	writeResponse(res, http.StatusOK, models.OK(*order))
}

func (handlers *handlers) internalError(res http.ResponseWriter, operation string, err error) {
	handlers.log.Sugar().Errorf("Failed to %s: %s", operation, err)
	writeErrorResponse(res, msgInternal, http.StatusInternalServerError)
}

func readJSON(req *http.Request, v any) error {
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(requestBody, v)
}

func writeResponse[T any](res http.ResponseWriter, statusCode int, envelope models.Response[T]) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(envelope)
}

func writeErrorResponse(res http.ResponseWriter, message string, statusCode int) {
	writeResponse(res, statusCode, models.Fail[struct{}](message))
}
