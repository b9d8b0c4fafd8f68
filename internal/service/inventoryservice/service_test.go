package inventoryservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
	"supermart/internal/service/inventoryservice"
)

// MockStockRepository é uma implementação mock da interface StockRepository
type MockStockRepository struct {
	mock.Mock
}

func (m *MockStockRepository) ApplyStockChange(ctx context.Context, cmd domain.StockChangeCommand) (domain.StockChangeResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(domain.StockChangeResult), args.Error(1)
}

func (m *MockStockRepository) FindLogs(ctx context.Context, filter domain.InventoryLogFilter) ([]domain.InventoryLogEntry, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.InventoryLogEntry), args.Int(1), args.Error(2)
}

// MockProductFinder é uma implementação mock da interface ProductFinder
type MockProductFinder struct {
	mock.Mock
}

func (m *MockProductFinder) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	args := m.Called(ctx, sku)
	return args.Get(0).(domain.Product), args.Error(1)
}

func testOperator() domain.Operator {
	return domain.Operator{ID: uuid.New().String(), Name: "operador-teste"}
}

// TestApplyStockChange_Success_In testa uma entrada de estoque bem-sucedida.
func TestApplyStockChange_Success_In(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	productID := uuid.New().String()
	expected := domain.StockChangeResult{
		LogID:       uuid.New().String(),
		BeforeStock: 10,
		AfterStock:  15,
	}

	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.StockChangeCommand")).
		Return(expected, nil)

	result, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
		ProductID:     productID,
		OperationType: domain.OperationIn,
		Quantity:      5,
		Operator:      testOperator(),
	})

	assert.NoError(t, err)
	assert.Equal(t, expected.BeforeStock, result.BeforeStock)
	assert.Equal(t, expected.AfterStock, result.AfterStock)
	assert.NotEmpty(t, result.LogID)
	mockRepo.AssertExpectations(t)
}

// TestApplyStockChange_DefaultReason verifica que o motivo padrão é preenchido
// antes de chegar ao repositório quando o chamador não informa um.
func TestApplyStockChange_DefaultReason(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(cmd domain.StockChangeCommand) bool {
		return cmd.Reason == "Entrada de estoque"
	})).Return(domain.StockChangeResult{BeforeStock: 0, AfterStock: 5}, nil)

	_, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
		ProductID:     uuid.New().String(),
		OperationType: domain.OperationIn,
		Quantity:      5,
		Operator:      testOperator(),
	})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestApplyStockChange_Fail_NonPositiveQuantity testa a rejeição de quantidade
// não-positiva ANTES de qualquer acesso ao repositório.
func TestApplyStockChange_Fail_NonPositiveQuantity(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	for _, quantity := range []int{0, -3} {
		_, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
			ProductID:     uuid.New().String(),
			OperationType: domain.OperationOut,
			Quantity:      quantity,
			Operator:      testOperator(),
		})

		assert.Error(t, err)
		assert.IsType(t, &apperror.ValidationError{}, err)
	}

	// O repositório nunca deve ser tocado por uma mutação rejeitada na validação
	mockRepo.AssertNotCalled(t, "ApplyStockChange", mock.Anything, mock.Anything)
}

// TestApplyStockChange_Fail_UnitCostOnOut testa que custo unitário em saída é rejeitado.
func TestApplyStockChange_Fail_UnitCostOnOut(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	cost := 9.90
	_, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
		ProductID:     uuid.New().String(),
		OperationType: domain.OperationOut,
		Quantity:      2,
		UnitCost:      &cost,
		Operator:      testOperator(),
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "entrada")
	mockRepo.AssertNotCalled(t, "ApplyStockChange", mock.Anything, mock.Anything)
}

// TestApplyStockChange_Fail_NegativeAdjustTarget testa a rejeição de ajuste
// para estoque alvo negativo.
func TestApplyStockChange_Fail_NegativeAdjustTarget(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	_, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
		ProductID:     uuid.New().String(),
		OperationType: domain.OperationAdjust,
		TargetStock:   -1,
		Operator:      testOperator(),
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "ApplyStockChange", mock.Anything, mock.Anything)
}

// TestApplyStockChange_Fail_InsufficientStock testa que o erro tipado de estoque
// insuficiente vindo do repositório passa direto para o chamador.
func TestApplyStockChange_Fail_InsufficientStock(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.StockChangeCommand")).
		Return(domain.StockChangeResult{}, apperror.NewInsufficientStockError("Arroz 5kg tem estoque 3, saída de 10 solicitada."))

	_, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
		ProductID:     uuid.New().String(),
		OperationType: domain.OperationOut,
		Quantity:      10,
		Operator:      testOperator(),
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.InsufficientStockError{}, err)
	assert.Contains(t, err.Error(), "estoque 3")
	mockRepo.AssertExpectations(t)
}

// TestApplyStockChange_Fail_MissingOperator testa que mutações sem operador são rejeitadas.
func TestApplyStockChange_Fail_MissingOperator(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	_, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
		ProductID:     uuid.New().String(),
		OperationType: domain.OperationIn,
		Quantity:      5,
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "operador")
	mockRepo.AssertNotCalled(t, "ApplyStockChange", mock.Anything, mock.Anything)
}

// TestApplyStockChange_Fail_InternalError testa a conversão de erro genérico
// do repositório em InternalError.
func TestApplyStockChange_Fail_InternalError(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	repoError := errors.New("falha de conexão com o DB")
	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.StockChangeCommand")).
		Return(domain.StockChangeResult{}, repoError)

	_, err := svc.ApplyStockChange(context.Background(), domain.StockChangeCommand{
		ProductID:     uuid.New().String(),
		OperationType: domain.OperationIn,
		Quantity:      1,
		Operator:      testOperator(),
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.InternalError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestProcessBatch_MixedRows testa um lote com linhas válidas e inválidas:
// as válidas são aplicadas, as inválidas são registradas com o número da linha
// da planilha, e uma falha não desfaz as linhas anteriores.
func TestProcessBatch_MixedRows(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	operator := testOperator()
	productA := domain.Product{ID: uuid.New().String(), SKU: "SKU-A", Name: "Arroz 5kg", Stock: 10}
	productC := domain.Product{ID: uuid.New().String(), SKU: "SKU-C", Name: "Feijão 1kg", Stock: 4}

	mockFinder.On("FindBySKU", mock.AnythingOfType("context.backgroundCtx"), "SKU-A").Return(productA, nil)
	mockFinder.On("FindBySKU", mock.AnythingOfType("context.backgroundCtx"), "SKU-B").
		Return(domain.Product{}, apperror.NewNotFoundError("Produto com SKU SKU-B não existe na base de dados."))
	mockFinder.On("FindBySKU", mock.AnythingOfType("context.backgroundCtx"), "SKU-C").Return(productC, nil)

	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(cmd domain.StockChangeCommand) bool {
		return cmd.ProductID == productA.ID
	})).Return(domain.StockChangeResult{BeforeStock: 10, AfterStock: 15}, nil)
	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(cmd domain.StockChangeCommand) bool {
		return cmd.ProductID == productC.ID
	})).Return(domain.StockChangeResult{BeforeStock: 4, AfterStock: 7}, nil)

	rows := []domain.BatchRow{
		{RowNumber: 2, SKU: "SKU-A", Quantity: 5},
		{RowNumber: 3, SKU: "SKU-B", Quantity: 2},  // SKU inexistente
		{RowNumber: 4, SKU: "", Quantity: 1},       // SKU vazio
		{RowNumber: 5, SKU: "SKU-C", Quantity: 0},  // quantidade inválida
		{RowNumber: 6, SKU: "SKU-C", Quantity: 3},
	}

	result, err := svc.ProcessBatch(context.Background(), rows, domain.OperationIn, operator)

	assert.NoError(t, err)
	assert.Len(t, result.Succeeded, 2)
	assert.Len(t, result.Failed, 3)

	// Sucessos na ordem de inserção
	assert.Equal(t, "SKU-A", result.Succeeded[0].SKU)
	assert.Equal(t, 15, result.Succeeded[0].AfterStock)
	assert.Equal(t, "SKU-C", result.Succeeded[1].SKU)
	assert.Equal(t, 7, result.Succeeded[1].AfterStock)

	// Falhas carregam o número da linha da planilha
	assert.Equal(t, 3, result.Failed[0].RowNumber)
	assert.Contains(t, result.Failed[0].Reason, "SKU-B")
	assert.Equal(t, 4, result.Failed[1].RowNumber)
	assert.Equal(t, 5, result.Failed[2].RowNumber)

	mockRepo.AssertExpectations(t)
	mockFinder.AssertExpectations(t)
}

// TestProcessBatch_FailureDoesNotAbort testa que uma linha com estoque
// insuficiente não impede as linhas seguintes de serem aplicadas.
func TestProcessBatch_FailureDoesNotAbort(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	productA := domain.Product{ID: uuid.New().String(), SKU: "SKU-A", Name: "Arroz 5kg", Stock: 1}
	productB := domain.Product{ID: uuid.New().String(), SKU: "SKU-B", Name: "Feijão 1kg", Stock: 50}

	mockFinder.On("FindBySKU", mock.AnythingOfType("context.backgroundCtx"), "SKU-A").Return(productA, nil)
	mockFinder.On("FindBySKU", mock.AnythingOfType("context.backgroundCtx"), "SKU-B").Return(productB, nil)

	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(cmd domain.StockChangeCommand) bool {
		return cmd.ProductID == productA.ID
	})).Return(domain.StockChangeResult{}, apperror.NewInsufficientStockError("Arroz 5kg tem estoque 1, saída de 10 solicitada."))
	mockRepo.On("ApplyStockChange", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(cmd domain.StockChangeCommand) bool {
		return cmd.ProductID == productB.ID
	})).Return(domain.StockChangeResult{BeforeStock: 50, AfterStock: 45}, nil)

	rows := []domain.BatchRow{
		{RowNumber: 2, SKU: "SKU-A", Quantity: 10},
		{RowNumber: 3, SKU: "SKU-B", Quantity: 5},
	}

	result, err := svc.ProcessBatch(context.Background(), rows, domain.OperationOut, testOperator())

	assert.NoError(t, err)
	assert.Len(t, result.Succeeded, 1)
	assert.Len(t, result.Failed, 1)
	assert.Equal(t, 2, result.Failed[0].RowNumber)
	assert.Equal(t, "SKU-B", result.Succeeded[0].SKU)
	mockRepo.AssertExpectations(t)
}

// TestProcessBatch_Fail_InvalidMode testa a rejeição de modo de lote inválido.
func TestProcessBatch_Fail_InvalidMode(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	_, err := svc.ProcessBatch(context.Background(), []domain.BatchRow{}, domain.OperationAdjust, testOperator())

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockFinder.AssertNotCalled(t, "FindBySKU", mock.Anything, mock.Anything)
}

// TestListLogs_DefaultsAndValidation testa os padrões de paginação e a rejeição
// de tipo de operação desconhecido no filtro.
func TestListLogs_DefaultsAndValidation(t *testing.T) {
	mockRepo := new(MockStockRepository)
	mockFinder := new(MockProductFinder)
	mockLogger := logger.NewLogger("debug")

	svc := inventoryservice.NewService(mockRepo, mockFinder, mockLogger)

	mockRepo.On("FindLogs", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(f domain.InventoryLogFilter) bool {
		return f.Page == 1 && f.Limit == 10
	})).Return([]domain.InventoryLogEntry{}, 0, nil)

	_, _, err := svc.ListLogs(context.Background(), domain.InventoryLogFilter{})
	assert.NoError(t, err)

	_, _, err = svc.ListLogs(context.Background(), domain.InventoryLogFilter{OperationType: "transfer"})
	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)

	mockRepo.AssertExpectations(t)
}
