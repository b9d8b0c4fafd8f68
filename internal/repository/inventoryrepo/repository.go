package inventoryrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"supermart/internal/domain"
	"supermart/internal/errors"
	"supermart/internal/pkg/logger"
)

// InventoryRepository implementa a persistência do motor de mutação de estoque
// e a consulta do livro de auditoria (inventory_logs).
type InventoryRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewInventoryRepository cria e retorna uma nova instância do Repositório de Estoque.
func NewInventoryRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *InventoryRepository {
	return &InventoryRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// ApplyStockChange executa UMA mutação de estoque como uma única transação:
//
//  1. SELECT ... FOR UPDATE na linha do produto (serializa mutações concorrentes
//     ao mesmo produto; produtos diferentes não se bloqueiam);
//  2. calcula o delta com sinal e o estoque resultante, rejeitando saldo negativo;
//  3. UPDATE do estoque e do status derivado;
//  4. INSERT do registro de auditoria com snapshot antes/depois.
//
// Ou o estoque novo e a linha de auditoria são gravados juntos, ou nada é gravado.
// Falha na escrita da auditoria depois do UPDATE nunca commita: a transação
// inteira é desfeita e o erro propagado.
func (r *InventoryRepository) ApplyStockChange(ctx context.Context, cmd domain.StockChangeCommand) (domain.StockChangeResult, error) {
	r.logger.Debug("Iniciando mutação de estoque no repositório.", map[string]interface{}{
		"product_id":     cmd.ProductID,
		"operation_type": string(cmd.OperationType),
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de mutação de estoque.", err)
		return domain.StockChangeResult{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro; no-op depois do Commit

	// 1. Travar a linha do produto e ler o estado atual
	var (
		name   string
		stock  int
		status domain.ProductStatus
	)
	querySelect := `
        SELECT name, stock, status
        FROM products
        WHERE id = $1 FOR UPDATE`

	err = tx.QueryRowContext(ctxTimeout, querySelect, cmd.ProductID).Scan(&name, &stock, &status)
	if err == sql.ErrNoRows {
		return domain.StockChangeResult{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", cmd.ProductID))
	}
	if err != nil {
		r.logger.Error("Falha ao travar produto para mutação de estoque.", err)
		return domain.StockChangeResult{}, errors.NewDBError("Falha ao buscar produto para mutação", err)
	}

	// 2. Calcular o delta com sinal conforme o tipo de operação.
	// A aritmética é pura (domain.ComputeStockDelta); aqui só traduzimos as
	// rejeições para a taxonomia de erros com o contexto do produto.
	beforeStock := stock
	quantity, afterStock, deltaErr := domain.ComputeStockDelta(cmd.OperationType, beforeStock, cmd.Quantity, cmd.TargetStock)
	switch deltaErr {
	case nil:
	case domain.ErrInsufficientStock:
		return domain.StockChangeResult{}, errors.NewInsufficientStockError(
			fmt.Sprintf("%s tem estoque %d, saída de %d solicitada.", name, beforeStock, cmd.Quantity))
	case domain.ErrUnknownOperation:
		return domain.StockChangeResult{}, errors.NewValidationError(fmt.Sprintf("Tipo de operação desconhecido: %s", cmd.OperationType))
	default:
		return domain.StockChangeResult{}, errors.NewValidationError("A mutação resultaria em estoque negativo.")
	}

	// 3. Persistir o novo estoque e o status derivado
	newStatus := domain.DeriveStatus(afterStock, status)
	now := time.Now().UTC()

	queryUpdate := `
        UPDATE products
        SET stock = $1, status = $2, updated_at = $3
        WHERE id = $4`

	if _, err = tx.ExecContext(ctxTimeout, queryUpdate, afterStock, string(newStatus), now, cmd.ProductID); err != nil {
		r.logger.Error("Falha ao atualizar estoque do produto.", err)
		return domain.StockChangeResult{}, errors.NewDBError("Falha ao atualizar estoque", err)
	}

	// 4. Anexar o registro de auditoria na MESMA transação
	logID := uuid.New().String()

	var unitCost, totalCost sql.NullFloat64
	if cmd.UnitCost != nil {
		unitCost = sql.NullFloat64{Float64: *cmd.UnitCost, Valid: true}
		totalCost = sql.NullFloat64{Float64: *cmd.UnitCost * float64(abs(quantity)), Valid: true}
	}

	queryInsert := `
        INSERT INTO inventory_logs
            (id, product_id, product_name, operation_type, quantity, before_stock, after_stock,
             unit_cost, total_cost, batch_number, supplier, operator_id, operator_name, reason, operation_time)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.ExecContext(ctxTimeout, queryInsert,
		logID,
		cmd.ProductID,
		name,
		string(cmd.OperationType),
		quantity,
		beforeStock,
		afterStock,
		unitCost,
		totalCost,
		nullString(cmd.BatchNumber),
		nullString(cmd.Supplier),
		cmd.Operator.ID,
		cmd.Operator.Name,
		nullString(cmd.Reason),
		now,
	)
	if err != nil {
		// A auditoria falhou depois do UPDATE: o defer Rollback desfaz também
		// a escrita do estoque. Jamais "melhor esforço" aqui.
		r.logger.Error("Falha ao gravar registro de auditoria de estoque. Transação será desfeita.", err)
		return domain.StockChangeResult{}, errors.NewDBError("Falha ao gravar log de estoque", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de mutação de estoque.", commitErr)
		return domain.StockChangeResult{}, errors.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.logger.Info("Mutação de estoque aplicada com sucesso.", map[string]interface{}{
		"product_id":   cmd.ProductID,
		"operation":    string(cmd.OperationType),
		"quantity":     quantity,
		"before_stock": beforeStock,
		"after_stock":  afterStock,
		"log_id":       logID,
	})

	return domain.StockChangeResult{
		LogID:       logID,
		BeforeStock: beforeStock,
		AfterStock:  afterStock,
	}, nil
}

// FindLogs consulta o livro de auditoria com filtros e paginação.
// Ordenação: operation_time DESC, com desempate pela sequência de inserção (seq DESC).
// Linhas nunca são atualizadas nem deletadas por aqui: o livro é append-only.
func (r *InventoryRepository) FindLogs(ctx context.Context, filter domain.InventoryLogFilter) ([]domain.InventoryLogEntry, int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	where, args := buildLogFilter(filter)

	// Total para a paginação
	var total int
	countQuery := "SELECT COUNT(*) FROM inventory_logs" + where
	if err := r.DB.QueryRowContext(ctxTimeout, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Falha ao contar logs de estoque.", err)
		return nil, 0, errors.NewDBError("Falha ao contar logs de estoque", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := `
        SELECT id, seq, product_id, product_name, operation_type, quantity, before_stock, after_stock,
               unit_cost, total_cost, batch_number, supplier, operator_id, operator_name, reason, operation_time
        FROM inventory_logs` + where +
		fmt.Sprintf(" ORDER BY operation_time DESC, seq DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := r.DB.QueryContext(ctxTimeout, query, append(args, filter.Limit, offset)...)
	if err != nil {
		r.logger.Error("Falha ao buscar logs de estoque.", err)
		return nil, 0, errors.NewDBError("Falha ao buscar logs de estoque", err)
	}
	defer rows.Close()

	var entries []domain.InventoryLogEntry
	for rows.Next() {
		var (
			e           domain.InventoryLogEntry
			unitCost    sql.NullFloat64
			totalCost   sql.NullFloat64
			batchNumber sql.NullString
			supplier    sql.NullString
			reason      sql.NullString
		)
		err := rows.Scan(
			&e.ID, &e.Seq, &e.ProductID, &e.ProductName, &e.OperationType, &e.Quantity,
			&e.BeforeStock, &e.AfterStock, &unitCost, &totalCost, &batchNumber,
			&supplier, &e.OperatorID, &e.OperatorName, &reason, &e.OperationTime,
		)
		if err != nil {
			r.logger.Error("Falha ao mapear log de estoque.", err)
			return nil, 0, errors.NewDBError("Falha ao mapear log de estoque", err)
		}

		if unitCost.Valid {
			e.UnitCost = &unitCost.Float64
		}
		if totalCost.Valid {
			e.TotalCost = &totalCost.Float64
		}
		if batchNumber.Valid {
			e.BatchNumber = &batchNumber.String
		}
		if supplier.Valid {
			e.Supplier = &supplier.String
		}
		if reason.Valid {
			e.Reason = &reason.String
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewDBError("Falha ao iterar logs de estoque", err)
	}

	return entries, total, nil
}

// buildLogFilter monta a cláusula WHERE parametrizada a partir do filtro.
func buildLogFilter(filter domain.InventoryLogFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.ProductID != "" {
		add("product_id = $%d", filter.ProductID)
	}
	if filter.OperationType != "" {
		add("operation_type = $%d", string(filter.OperationType))
	}
	if filter.OperatorID != "" {
		add("operator_id = $%d", filter.OperatorID)
	}
	if filter.StartDate != nil {
		add("operation_time >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("operation_time <= $%d", *filter.EndDate)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
