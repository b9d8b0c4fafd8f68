package inventoryservice

import (
	"context"
	"fmt"
	"strings"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
)

// Motivos padrão das operações quando o chamador não informa um.
const (
	defaultReasonIn     = "Entrada de estoque"
	defaultReasonOut    = "Saída de estoque"
	defaultReasonAdjust = "Ajuste de estoque"
)

// StockRepository define o contrato que o Serviço de Estoque espera da camada de
// Persistência. ApplyStockChange deve executar a mutação e a escrita de auditoria
// como uma unidade atômica.
type StockRepository interface {
	ApplyStockChange(ctx context.Context, cmd domain.StockChangeCommand) (domain.StockChangeResult, error)
	FindLogs(ctx context.Context, filter domain.InventoryLogFilter) ([]domain.InventoryLogEntry, int, error)
}

// ProductFinder define a resolução de produto por chave de negócio (SKU),
// necessária para o processamento de lotes importados.
type ProductFinder interface {
	FindBySKU(ctx context.Context, sku string) (domain.Product, error)
}

// Service implementa o motor de mutação de estoque e o processador de importação em lote.
type Service struct {
	repo     StockRepository
	products ProductFinder
	logger   logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(repo StockRepository, products ProductFinder, logger logger.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger}
}

// ApplyStockChange valida e executa UMA mutação de estoque.
// Pré-condições por tipo de operação:
//   - in:     Quantity deve ser um inteiro positivo;
//   - out:    Quantity deve ser um inteiro positivo (estoque suficiente é
//     verificado dentro da transação, com a linha travada);
//   - adjust: TargetStock deve ser >= 0; o delta é calculado pelo motor.
//
// Mutações rejeitadas (validação, produto inexistente, estoque insuficiente)
// não tocam estoque nem livro de auditoria.
func (s *Service) ApplyStockChange(ctx context.Context, cmd domain.StockChangeCommand) (domain.StockChangeResult, error) {
	s.logger.Debug("Iniciando mutação de estoque no serviço.", map[string]interface{}{
		"product_id":     cmd.ProductID,
		"operation_type": string(cmd.OperationType),
	})

	if cmd.ProductID == "" {
		return domain.StockChangeResult{}, apperror.NewValidationError("O ID do produto é obrigatório.")
	}
	if cmd.Operator.ID == "" || cmd.Operator.Name == "" {
		return domain.StockChangeResult{}, apperror.NewValidationError("A identidade do operador é obrigatória.")
	}

	switch cmd.OperationType {
	case domain.OperationIn:
		if cmd.Quantity <= 0 {
			return domain.StockChangeResult{}, apperror.NewValidationError("A quantidade de entrada deve ser um inteiro positivo.")
		}
		if cmd.Reason == "" {
			cmd.Reason = defaultReasonIn
		}
	case domain.OperationOut:
		if cmd.Quantity <= 0 {
			return domain.StockChangeResult{}, apperror.NewValidationError("A quantidade de saída deve ser um inteiro positivo.")
		}
		if cmd.UnitCost != nil {
			return domain.StockChangeResult{}, apperror.NewValidationError("Custo unitário só se aplica a operações de entrada.")
		}
		if cmd.Reason == "" {
			cmd.Reason = defaultReasonOut
		}
	case domain.OperationAdjust:
		if cmd.TargetStock < 0 {
			return domain.StockChangeResult{}, apperror.NewValidationError("O estoque alvo do ajuste não pode ser negativo.")
		}
		if cmd.Reason == "" {
			cmd.Reason = defaultReasonAdjust
		}
	default:
		return domain.StockChangeResult{}, apperror.NewValidationError(fmt.Sprintf("Tipo de operação desconhecido: %s", cmd.OperationType))
	}

	result, err := s.repo.ApplyStockChange(ctx, cmd)
	if err != nil {
		// Erros de negócio (NotFound, InsufficientStock, Validation) já vêm
		// tipados do repositório e passam direto para o chamador.
		if _, ok := err.(apperror.AppError); ok {
			return domain.StockChangeResult{}, err
		}
		s.logger.Error("Falha interna ao aplicar mutação de estoque.", err)
		return domain.StockChangeResult{}, apperror.NewInternalError("Falha interna ao aplicar mutação de estoque.", err)
	}

	s.logger.Info("Mutação de estoque concluída.", map[string]interface{}{
		"product_id":   cmd.ProductID,
		"operation":    string(cmd.OperationType),
		"before_stock": result.BeforeStock,
		"after_stock":  result.AfterStock,
	})
	return result, nil
}

// ProcessBatch aplica linhas de uma planilha importada, uma a uma.
// Cada linha é sua própria fronteira de transação: a falha de uma linha
// (SKU ausente, quantidade inválida, estoque insuficiente) é registrada
// contra a própria linha e NÃO aborta nem desfaz as linhas já aplicadas.
// O resultado é uma contabilidade fiel do que aconteceu, não um tudo-ou-nada.
func (s *Service) ProcessBatch(ctx context.Context, rows []domain.BatchRow, mode domain.OperationType, operator domain.Operator) (domain.BatchResult, error) {
	if mode != domain.OperationIn && mode != domain.OperationOut {
		return domain.BatchResult{}, apperror.NewValidationError("O modo do lote deve ser 'in' ou 'out'.")
	}

	result := domain.BatchResult{
		Succeeded: []domain.BatchRowResult{},
		Failed:    []domain.BatchRowError{},
	}

	for _, row := range rows {
		if strings.TrimSpace(row.SKU) == "" {
			result.Failed = append(result.Failed, domain.BatchRowError{
				RowNumber: row.RowNumber,
				Reason:    "SKU não pode ser vazio.",
			})
			continue
		}
		if row.Quantity <= 0 {
			result.Failed = append(result.Failed, domain.BatchRowError{
				RowNumber: row.RowNumber,
				Reason:    "A quantidade deve ser um inteiro positivo.",
			})
			continue
		}

		product, err := s.products.FindBySKU(ctx, row.SKU)
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchRowError{
				RowNumber: row.RowNumber,
				Reason:    fmt.Sprintf("Produto com SKU %s não encontrado.", row.SKU),
			})
			continue
		}

		cmd := domain.StockChangeCommand{
			ProductID:     product.ID,
			OperationType: mode,
			Quantity:      row.Quantity,
			Reason:        row.Reason,
			Operator:      operator,
		}
		if mode == domain.OperationIn {
			cmd.UnitCost = row.UnitCost
			cmd.BatchNumber = row.BatchNumber
			cmd.Supplier = row.Supplier
			if cmd.Reason == "" {
				cmd.Reason = "Entrada em lote"
			}
		} else if cmd.Reason == "" {
			cmd.Reason = "Saída em lote"
		}

		applied, err := s.ApplyStockChange(ctx, cmd)
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchRowError{
				RowNumber: row.RowNumber,
				Reason:    err.Error(),
			})
			continue
		}

		result.Succeeded = append(result.Succeeded, domain.BatchRowResult{
			SKU:         row.SKU,
			Name:        product.Name,
			Quantity:    row.Quantity,
			BeforeStock: applied.BeforeStock,
			AfterStock:  applied.AfterStock,
		})
	}

	s.logger.Info("Lote de estoque processado.", map[string]interface{}{
		"mode":      string(mode),
		"total":     len(rows),
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	})
	return result, nil
}

// ListLogs consulta o livro de auditoria de estoque com filtros e paginação.
func (s *Service) ListLogs(ctx context.Context, filter domain.InventoryLogFilter) ([]domain.InventoryLogEntry, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.OperationType != "" && !filter.OperationType.Valid() {
		return nil, 0, apperror.NewValidationError(fmt.Sprintf("Tipo de operação desconhecido: %s", filter.OperationType))
	}

	entries, total, err := s.repo.FindLogs(ctx, filter)
	if err != nil {
		if _, ok := err.(apperror.AppError); ok {
			return nil, 0, err
		}
		s.logger.Error("Falha ao consultar logs de estoque.", err)
		return nil, 0, apperror.NewInternalError("Falha interna ao consultar logs de estoque.", err)
	}
	return entries, total, nil
}
