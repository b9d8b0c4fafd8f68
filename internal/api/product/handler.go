package product

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
	"supermart/internal/pkg/middleware"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, product domain.Product, operator domain.Operator, reason string) (domain.Product, error)
	GetProductByID(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	UpdateProduct(ctx context.Context, id string, update domain.ProductUpdate, operator domain.Operator) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string, operator domain.Operator, reason string) error
	ListProductLogs(ctx context.Context, filter domain.ProductLogFilter) ([]domain.ProductLogEntry, int, error)
}

// Handler agrupa todos os métodos de Handler de produtos.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// createProductRequest é o payload de POST /v1/products.
type createProductRequest struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	MinStock    int     `json:"min_stock"`
	Supplier    string  `json:"supplier,omitempty"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// updateProductRequest é o payload de PUT /v1/products/{id}.
// Ponteiros distinguem "não enviado" de "enviado com zero". Estoque fica de fora:
// mudanças de estoque passam pelos endpoints de inventário.
type updateProductRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Brand       *string  `json:"brand"`
	Price       *float64 `json:"price"`
	MinStock    *int     `json:"min_stock"`
	Supplier    *string  `json:"supplier"`
	Status      *string  `json:"status"`
	Description *string  `json:"description"`
	Image       *string  `json:"image"`
	Reason      string   `json:"reason,omitempty"`
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

// operator extrai a identidade do operador das claims anexadas pelo AuthMiddleware.
func (h *Handler) operator(r *http.Request) (domain.Operator, bool) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		return domain.Operator{}, false
	}
	return claims.Operator(), true
}

// CollectionHandler despacha GET (lista) e POST (criação) em /v1/products.
// @Summary Lista e cria produtos
// @Description GET lista o catálogo com filtros e paginação; POST cadastra um novo produto.
// @Tags products
// @Accept json
// @Produce json
// @Param product body createProductRequest true "Dados do produto (POST)"
// @Success 201 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 409 {object} domain.ErrorResponse "SKU já cadastrado"
// @Router /v1/products [post]
func (h *Handler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listProducts(w, r)
	case http.MethodPost:
		h.createProduct(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// ItemHandler despacha GET, PUT e DELETE em /v1/products/{id}.
// @Summary Consulta, atualiza e remove um produto
// @Description GET retorna o produto; PUT aplica alterações parciais; DELETE remove (admin/manager).
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.Product
// @Failure 404 {object} domain.ErrorResponse "Produto não encontrado"
// @Router /v1/products/{id} [get]
func (h *Handler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/products/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := h.Service.GetProductByID(r.Context(), id)
		h.handleServiceResponse(w, r, product, err, http.StatusOK)
	case http.MethodPut:
		h.updateProduct(w, r, id)
	case http.MethodDelete:
		h.deleteProduct(w, r, id)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	operator, ok := h.operator(r)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Operador não identificado."), 0)
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	product, err := h.Service.CreateProduct(r.Context(), domain.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Category:    req.Category,
		Brand:       req.Brand,
		Price:       req.Price,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		Supplier:    req.Supplier,
		Description: req.Description,
		Image:       req.Image,
	}, operator, req.Reason)
	h.handleServiceResponse(w, r, product, err, http.StatusCreated)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ProductFilter{
		Search:   query.Get("search"),
		Category: query.Get("category"),
		Status:   domain.ProductStatus(query.Get("status")),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))

	products, total, err := h.Service.ListProducts(r.Context(), filter)
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
		"products":    products,
		"total":       total,
		"page":        filter.Page,
		"limit":       filter.Limit,
		"total_pages": (total + filter.Limit - 1) / filter.Limit,
	}
	h.handleServiceResponse(w, r, response, nil, http.StatusOK)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request, id string) {
	operator, ok := h.operator(r)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Operador não identificado."), 0)
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	update := domain.ProductUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Brand:       req.Brand,
		Price:       req.Price,
		MinStock:    req.MinStock,
		Supplier:    req.Supplier,
		Description: req.Description,
		Image:       req.Image,
		Reason:      req.Reason,
	}
	if req.Status != nil {
		status := domain.ProductStatus(*req.Status)
		update.Status = &status
	}

	product, err := h.Service.UpdateProduct(r.Context(), id, update, operator)
	h.handleServiceResponse(w, r, product, err, http.StatusOK)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	operator, ok := h.operator(r)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Operador não identificado."), 0)
		return
	}

	reason := r.URL.Query().Get("reason")
	err := h.Service.DeleteProduct(r.Context(), id, operator, reason)
	h.handleServiceResponse(w, r, map[string]string{"message": "Produto removido com sucesso."}, err, http.StatusOK)
}

// ListLogsHandler lida com GET /v1/products/logs.
// @Summary Lista o histórico de alterações de produtos
// @Description Consulta paginada dos registros de auditoria do catálogo.
// @Tags products
// @Produce json
// @Param product_id query string false "ID do produto"
// @Param operation_type query string false "Tipo de operação (create, update, delete, status_change)"
// @Param page query int false "Página (padrão 1)"
// @Param limit query int false "Itens por página (padrão 10)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} domain.ErrorResponse "Filtro inválido"
// @Router /v1/products/logs [get]
func (h *Handler) ListLogsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	filter := domain.ProductLogFilter{
		ProductID:     query.Get("product_id"),
		OperationType: domain.ProductOperationType(query.Get("operation_type")),
		OperatorID:    query.Get("operator_id"),
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

	entries, total, err := h.Service.ListProductLogs(r.Context(), filter)
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
		"logs":        entries,
		"total":       total,
		"page":        filter.Page,
		"limit":       filter.Limit,
		"total_pages": (total + filter.Limit - 1) / filter.Limit,
	}
	h.handleServiceResponse(w, r, response, nil, http.StatusOK)
}
