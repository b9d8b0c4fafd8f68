package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
	"supermart/internal/pkg/middleware"
)

// maxUploadSize limita o tamanho do arquivo de lote (5MB, como a fonte original).
const maxUploadSize = 5 << 20

// Cabeçalhos reconhecidos na planilha de lote.
const (
	colSKU         = "SKU"
	colQuantity    = "Quantidade"
	colUnitCost    = "Custo Unitario"
	colBatchNumber = "Lote"
	colSupplier    = "Fornecedor"
	colReason      = "Observacao"
)

// InventoryService define o contrato que o Handler espera da camada de Serviço.
type InventoryService interface {
	ApplyStockChange(ctx context.Context, cmd domain.StockChangeCommand) (domain.StockChangeResult, error)
	ProcessBatch(ctx context.Context, rows []domain.BatchRow, mode domain.OperationType, operator domain.Operator) (domain.BatchResult, error)
	ListLogs(ctx context.Context, filter domain.InventoryLogFilter) ([]domain.InventoryLogEntry, int, error)
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service InventoryService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc InventoryService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// stockInRequest é o payload de POST /v1/inventory/in.
type stockInRequest struct {
	ProductID   string   `json:"product_id"`
	Quantity    int      `json:"quantity"`
	UnitCost    *float64 `json:"unit_cost,omitempty"`
	BatchNumber string   `json:"batch_number,omitempty"`
	Supplier    string   `json:"supplier,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// stockOutRequest é o payload de POST /v1/inventory/out.
type stockOutRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason,omitempty"`
}

// stockAdjustRequest é o payload de POST /v1/inventory/adjust.
// NewStock é o estoque absoluto desejado; o motor calcula o delta.
type stockAdjustRequest struct {
	ProductID string `json:"product_id"`
	NewStock  *int   `json:"new_stock"`
	Reason    string `json:"reason,omitempty"`
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

// StockInHandler lida com POST /v1/inventory/in.
// @Summary Entrada de estoque
// @Description Aplica uma entrada de estoque e grava o registro de auditoria na mesma transação.
// @Tags inventory
// @Accept json
// @Produce json
// @Param movement body stockInRequest true "Dados da entrada"
// @Success 200 {object} domain.StockChangeResult "Estoque antes/depois e ID do log criado"
// @Failure 400 {object} domain.ErrorResponse "Quantidade inválida"
// @Failure 404 {object} domain.ErrorResponse "Produto não encontrado"
// @Router /v1/inventory/in [post]
func (h *Handler) StockInHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	operator, ok := h.operator(r)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Operador não identificado."), 0)
		return
	}

	var req stockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	result, err := h.Service.ApplyStockChange(r.Context(), domain.StockChangeCommand{
		ProductID:     req.ProductID,
		OperationType: domain.OperationIn,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		BatchNumber:   req.BatchNumber,
		Supplier:      req.Supplier,
		Reason:        req.Reason,
		Operator:      operator,
	})
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// StockOutHandler lida com POST /v1/inventory/out.
// @Summary Saída de estoque
// @Description Aplica uma saída de estoque; estoque insuficiente rejeita a mutação inteira.
// @Tags inventory
// @Accept json
// @Produce json
// @Param movement body stockOutRequest true "Dados da saída"
// @Success 200 {object} domain.StockChangeResult
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente"
// @Router /v1/inventory/out [post]
func (h *Handler) StockOutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	operator, ok := h.operator(r)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Operador não identificado."), 0)
		return
	}

	var req stockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	result, err := h.Service.ApplyStockChange(r.Context(), domain.StockChangeCommand{
		ProductID:     req.ProductID,
		OperationType: domain.OperationOut,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		Operator:      operator,
	})
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// StockAdjustHandler lida com POST /v1/inventory/adjust.
// @Summary Ajuste de estoque
// @Description Ajusta o estoque de um produto para um valor absoluto, registrando o delta.
// @Tags inventory
// @Accept json
// @Produce json
// @Param movement body stockAdjustRequest true "Dados do ajuste"
// @Success 200 {object} domain.StockChangeResult
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Router /v1/inventory/adjust [post]
func (h *Handler) StockAdjustHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	operator, ok := h.operator(r)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Operador não identificado."), 0)
		return
	}

	var req stockAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}
	if req.NewStock == nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("O campo new_stock é obrigatório para ajuste."), 0)
		return
	}

	result, err := h.Service.ApplyStockChange(r.Context(), domain.StockChangeCommand{
		ProductID:     req.ProductID,
		OperationType: domain.OperationAdjust,
		TargetStock:   *req.NewStock,
		Reason:        req.Reason,
		Operator:      operator,
	})
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// BatchInHandler lida com POST /v1/inventory/batch-in (upload de planilha).
// @Summary Entrada de estoque em lote
// @Description Processa uma planilha .xlsx de entradas; linhas com erro não abortam o lote.
// @Tags inventory
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Planilha .xlsx"
// @Success 200 {object} domain.BatchResult
// @Failure 400 {object} domain.ErrorResponse "Arquivo inválido"
// @Router /v1/inventory/batch-in [post]
func (h *Handler) BatchInHandler(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, domain.OperationIn)
}

// BatchOutHandler lida com POST /v1/inventory/batch-out (upload de planilha).
// @Summary Saída de estoque em lote
// @Description Processa uma planilha .xlsx de saídas; linhas com erro não abortam o lote.
// @Tags inventory
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Planilha .xlsx"
// @Success 200 {object} domain.BatchResult
// @Failure 400 {object} domain.ErrorResponse "Arquivo inválido"
// @Router /v1/inventory/batch-out [post]
func (h *Handler) BatchOutHandler(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, domain.OperationOut)
}

// handleBatch recebe o arquivo .xlsx, converte as linhas em comandos tipados e
// delega o processamento linha a linha ao serviço.
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request, mode domain.OperationType) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	operator, ok := h.operator(r)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Operador não identificado."), 0)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Upload inválido ou arquivo maior que 5MB."), 0)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Envie a planilha no campo 'file'."), 0)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Só são aceitos arquivos .xlsx."), 0)
		return
	}

	rows, err := parseBatchSheet(file)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	result, err := h.Service.ProcessBatch(r.Context(), rows, mode, operator)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, 0)
		return
	}

	response := map[string]interface{}{
		"message":   fmt.Sprintf("Lote processado: %d com sucesso, %d com falha.", len(result.Succeeded), len(result.Failed)),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}
	h.handleServiceResponse(w, r, response, nil, http.StatusOK)
}

// parseBatchSheet lê a primeira aba da planilha e converte cada linha de dados
// em um BatchRow tipado. Erros de formato de célula produzem uma rejeição
// estruturada por linha via quantidade inválida, não um erro global.
func parseBatchSheet(file multipart.File) ([]domain.BatchRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, apperror.NewValidationError("Não foi possível ler a planilha. Verifique o arquivo.")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, apperror.NewValidationError("A planilha não contém nenhuma aba.")
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperror.NewValidationError("Não foi possível ler as linhas da planilha.")
	}
	if len(records) < 2 {
		return nil, apperror.NewValidationError("A planilha não contém linhas de dados.")
	}

	// Mapeia cabeçalho -> índice de coluna (linha 1 da planilha)
	colIndex := map[string]int{}
	for i, name := range records[0] {
		colIndex[strings.TrimSpace(name)] = i
	}
	if _, ok := colIndex[colSKU]; !ok {
		return nil, apperror.NewValidationError(fmt.Sprintf("A planilha precisa da coluna '%s'.", colSKU))
	}
	if _, ok := colIndex[colQuantity]; !ok {
		return nil, apperror.NewValidationError(fmt.Sprintf("A planilha precisa da coluna '%s'.", colQuantity))
	}

	cell := func(record []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var rows []domain.BatchRow
	for i, record := range records[1:] {
		row := domain.BatchRow{
			RowNumber:   i + 2, // linha 1 é o cabeçalho
			SKU:         cell(record, colSKU),
			BatchNumber: cell(record, colBatchNumber),
			Supplier:    cell(record, colSupplier),
			Reason:      cell(record, colReason),
		}

		// Quantidade inválida vira 0 e é rejeitada pelo serviço linha a linha.
		if q, err := strconv.Atoi(cell(record, colQuantity)); err == nil {
			row.Quantity = q
		}
		if raw := cell(record, colUnitCost); raw != "" {
			if cost, err := strconv.ParseFloat(raw, 64); err == nil {
				row.UnitCost = &cost
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// logListResponse é o envelope de GET /v1/inventory/logs.
type logListResponse struct {
	Logs       []domain.InventoryLogEntry `json:"logs"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	Limit      int                        `json:"limit"`
	TotalPages int                        `json:"total_pages"`
}

// ListLogsHandler lida com GET /v1/inventory/logs.
// @Summary Lista o diário de estoque
// @Description Consulta paginada do diário de movimentações, com filtros por produto, operação e período.
// @Tags inventory
// @Produce json
// @Param product_id query string false "ID do produto"
// @Param operation_type query string false "Tipo de operação (in, out, adjust)"
// @Param start_date query string false "Início do período (RFC3339)"
// @Param end_date query string false "Fim do período (RFC3339)"
// @Param page query int false "Página (padrão 1)"
// @Param limit query int false "Itens por página (padrão 10)"
// @Success 200 {object} logListResponse
// @Failure 400 {object} domain.ErrorResponse "Filtro inválido"
// @Router /v1/inventory/logs [get]
func (h *Handler) ListLogsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	filter := domain.InventoryLogFilter{
		ProductID:     query.Get("product_id"),
		OperationType: domain.OperationType(query.Get("operation_type")),
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

	entries, total, err := h.Service.ListLogs(r.Context(), filter)
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
	response := logListResponse{
		Logs:       entries,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}
	h.handleServiceResponse(w, r, response, nil, http.StatusOK)
}
