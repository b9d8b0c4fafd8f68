package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
)

// OrderService define o contrato que o Handler espera da camada de Serviço.
type OrderService interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	GetOrderByID(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)
	UpdateOrder(ctx context.Context, id string, update domain.OrderUpdate) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	GetStats(ctx context.Context) (domain.OrderStats, error)
}

// Handler agrupa todos os métodos de Handler de pedidos.
type Handler struct {
	Service OrderService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc OrderService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// createOrderRequest é o payload de POST /v1/orders.
// Não existe campo de total: o total é sempre calculado no servidor.
type createOrderRequest struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Type            string  `json:"type"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	Discount        float64 `json:"discount"`
	CustomerID      string  `json:"customer_id,omitempty"`
	CustomerName    string  `json:"customer_name,omitempty"`
	CustomerPhone   string  `json:"customer_phone,omitempty"`
	PaymentMethod   string  `json:"payment_method,omitempty"`
	ShippingAddress string  `json:"shipping_address,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	OrderDate       string  `json:"order_date,omitempty"`
}

// updateOrderRequest é o payload de PUT /v1/orders/{id}.
type updateOrderRequest struct {
	Name            *string  `json:"name"`
	Category        *string  `json:"category"`
	Type            *string  `json:"type"`
	Quantity        *int     `json:"quantity"`
	UnitPrice       *float64 `json:"unit_price"`
	Discount        *float64 `json:"discount"`
	CustomerName    *string  `json:"customer_name"`
	CustomerPhone   *string  `json:"customer_phone"`
	PaymentMethod   *string  `json:"payment_method"`
	ShippingAddress *string  `json:"shipping_address"`
	Notes           *string  `json:"notes"`
	Status          *string  `json:"status"`
	PaymentStatus   *string  `json:"payment_status"`
	DeliveryDate    *string  `json:"delivery_date"`
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// CollectionHandler despacha GET (lista) e POST (criação) em /v1/orders.
// @Summary Lista e cria pedidos
// @Description GET lista pedidos com filtros e paginação; POST cria um pedido com total calculado no servidor.
// @Tags orders
// @Accept json
// @Produce json
// @Param order body createOrderRequest true "Dados do pedido (POST)"
// @Success 201 {object} domain.Order
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Router /v1/orders [post]
func (h *Handler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listOrders(w, r)
	case http.MethodPost:
		h.createOrder(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// ItemHandler despacha GET, PUT e DELETE em /v1/orders/{id}.
// @Summary Consulta, atualiza e remove um pedido
// @Description GET retorna o pedido; PUT recalcula o total; DELETE remove (admin/manager). Pedidos entregues ou cancelados não aceitam alteração.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.Order
// @Failure 404 {object} domain.ErrorResponse "Pedido não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Pedido em estado terminal"
// @Router /v1/orders/{id} [get]
func (h *Handler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		order, err := h.Service.GetOrderByID(r.Context(), id)
		h.handleServiceResponse(w, r, order, err, http.StatusOK)
	case http.MethodPut:
		h.updateOrder(w, r, id)
	case http.MethodDelete:
		err := h.Service.DeleteOrder(r.Context(), id)
		h.handleServiceResponse(w, r, map[string]string{"message": "Pedido removido com sucesso."}, err, http.StatusOK)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	order := domain.Order{
		Name:            req.Name,
		Category:        req.Category,
		Type:            domain.OrderType(req.Type),
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		Discount:        req.Discount,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	if req.OrderDate != "" {
		t, err := time.Parse(time.RFC3339, req.OrderDate)
		if err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("order_date inválido. Use o formato RFC3339."), 0)
			return
		}
		order.OrderDate = t
	}

	created, err := h.Service.CreateOrder(r.Context(), order)
	h.handleServiceResponse(w, r, created, err, http.StatusCreated)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.OrderFilter{
		Status:        domain.OrderStatus(query.Get("status")),
		Type:          domain.OrderType(query.Get("type")),
		Category:      query.Get("category"),
		PaymentStatus: domain.PaymentStatus(query.Get("payment_status")),
		Keyword:       query.Get("keyword"),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))

	if raw := query.Get("start_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.StartDate = &t
		}
	}
	if raw := query.Get("end_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.EndDate = &t
		}
	}

	orders, total, err := h.Service.ListOrders(r.Context(), filter)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	response := map[string]interface{}{
		"orders":      orders,
		"total":       total,
		"page":        filter.Page,
		"limit":       filter.Limit,
		"total_pages": (total + filter.Limit - 1) / filter.Limit,
	}
	h.handleServiceResponse(w, r, response, nil, http.StatusOK)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request, id string) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	update := domain.OrderUpdate{
		Name:            req.Name,
		Category:        req.Category,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		Discount:        req.Discount,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	if req.Type != nil {
		orderType := domain.OrderType(*req.Type)
		update.Type = &orderType
	}
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		update.Status = &status
	}
	if req.PaymentStatus != nil {
		paymentStatus := domain.PaymentStatus(*req.PaymentStatus)
		update.PaymentStatus = &paymentStatus
	}
	if req.DeliveryDate != nil {
		t, err := time.Parse(time.RFC3339, *req.DeliveryDate)
		if err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("delivery_date inválido. Use o formato RFC3339."), 0)
			return
		}
		update.DeliveryDate = &t
	}

	order, err := h.Service.UpdateOrder(r.Context(), id, update)
	h.handleServiceResponse(w, r, order, err, http.StatusOK)
}

// StatsHandler lida com GET /v1/orders/stats.
// @Summary Estatísticas de pedidos
// @Description Retorna contagens por status e faturamento dos pedidos entregues.
// @Tags orders
// @Produce json
// @Success 200 {object} domain.OrderStats
// @Failure 500 {object} domain.ErrorResponse "Erro interno"
// @Router /v1/orders/stats [get]
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.Service.GetStats(r.Context())
	h.handleServiceResponse(w, r, stats, err, http.StatusOK)
}
