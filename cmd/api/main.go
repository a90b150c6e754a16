package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/go-order-payments/internal/config"
	"github.com/safar/go-order-payments/internal/database"
	"github.com/safar/go-order-payments/internal/models"
	"github.com/safar/go-order-payments/internal/notify"
	"github.com/safar/go-order-payments/internal/payment"
	"github.com/safar/go-order-payments/internal/store"
	"github.com/safar/go-order-payments/internal/telemetry"
	"github.com/shopspring/decimal"
)

func main() {
	telemetry.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	var notifier payment.Notifier = notify.LogNotifier{}
	if cfg.AMQP.URL != "" {
		amqpNotifier, cleanup, err := notify.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("Connect to AMQP broker: %v", err)
		}
		defer cleanup()
		notifier = amqpNotifier
	}

	engine := payment.NewEngine(
		cfg.Payment,
		&store.PaymentStore{DB: db},
		payment.NewSimulatedGateway(cfg.Payment.GatewayRejectPercent),
		payment.NewTokenizer(cfg.Payment.TokenizerRejectPercent),
		notifier,
		&store.AuditLog{DB: db},
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/customers", handleCreateCustomer(db))
	r.Get("/customers/{id}", handleGetCustomer(db))
	r.Post("/products", handleCreateProduct(db))
	r.Get("/products", handleListProducts(db))
	r.Get("/products/{id}", handleGetProduct(db))
	r.Post("/orders", handleCreateOrder(db))
	r.Get("/orders", handleListOrders(db))
	r.Get("/orders/{id}", handleGetOrder(db))
	r.Post("/orders/{id}/payment", handleProcessPayment(db, engine))
	r.Post("/orders/{id}/cancel", handleCancelOrder(db))
	r.Post("/orders/{id}/complete", handleCompleteOrder(db))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func handleCreateCustomer(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Email == "" || req.Name == "" {
			respondError(w, http.StatusBadRequest, "email and name are required")
			return
		}

		customer, err := store.CreateCustomer(r.Context(), db, req.Email, req.Name)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, customer)
	}
}

func handleGetCustomer(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		customer, err := store.GetCustomer(r.Context(), db, id)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, customer)
	}
}

func handleCreateProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SKU         string  `json:"sku"`
			Name        string  `json:"name"`
			Description string  `json:"description"`
			Price       float64 `json:"price"`
			Stock       int     `json:"stock"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Stock < 0 {
			respondError(w, http.StatusBadRequest, "stock must not be negative")
			return
		}

		price := decimal.NewFromFloat(req.Price)
		product, err := store.CreateProduct(r.Context(), db, req.SKU, req.Name, req.Description, price, req.Stock)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, product)
	}
}

func handleListProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		result, err := store.ListProducts(r.Context(), db, page, pageSize)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		product, err := store.GetProduct(r.Context(), db, id)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleCreateOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CustomerID int64 `json:"customer_id"`
			Items      []struct {
				ProductID int64 `json:"product_id"`
				Quantity  int   `json:"quantity"`
			} `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.CustomerID == 0 || len(req.Items) == 0 {
			respondError(w, http.StatusBadRequest, "customer_id and items are required")
			return
		}

		items := make([]store.OrderItemRequest, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Quantity < 1 {
				respondError(w, http.StatusBadRequest, "item quantity must be at least 1")
				return
			}
			items = append(items, store.OrderItemRequest{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		order, err := store.CreateOrder(r.Context(), db, store.CreateOrderRequest{
			CustomerID: req.CustomerID,
			Items:      items,
		})
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, order)
	}
}

func handleListOrders(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "customer_id query parameter is required")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		result, err := store.ListOrdersCursor(r.Context(), db, customerID, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		order, err := store.GetOrder(r.Context(), db, id)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleProcessPayment(db *sql.DB, engine *payment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req struct {
			Token string             `json:"token,omitempty"`
			Card  *models.CreditCard `json:"card,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Token == "" && req.Card == nil {
			respondError(w, http.StatusBadRequest, "either token or card is required")
			return
		}

		order, err := store.GetOrder(r.Context(), db, id)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		result, err := engine.ProcessPayment(r.Context(), order, payment.Method{
			Card:  req.Card,
			Token: req.Token,
		})
		if err != nil {
			var paymentErr *payment.PaymentError
			if errors.As(err, &paymentErr) {
				respondJSON(w, http.StatusPaymentRequired, map[string]interface{}{
					"error":         paymentErr.Error(),
					"failure_code":  paymentErr.Code,
					"reason":        paymentErr.Reason,
					"attempts_made": paymentErr.Attempts,
				})
				return
			}
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleCancelOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		order, err := store.CancelOrder(r.Context(), db, id)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleCompleteOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		order, err := store.CompleteOrder(r.Context(), db, id)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func respondDomainError(w http.ResponseWriter, err error) {
	var stockErr *database.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":        stockErr.Error(),
			"product_id":   stockErr.ProductID,
			"product_name": stockErr.ProductName,
			"available":    stockErr.Available,
			"requested":    stockErr.Requested,
		})
		return
	}

	var transitionErr *models.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":  transitionErr.Error(),
			"status": transitionErr.From,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
