package productservice_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
	"supermart/internal/service/productservice"
)

// MockProductRepository é uma implementação mock da interface ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product domain.Product, entry domain.ProductLogEntry) (domain.Product, error) {
	args := m.Called(ctx, product, entry)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	args := m.Called(ctx, sku)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *MockProductRepository) Update(ctx context.Context, product domain.Product, entry domain.ProductLogEntry) error {
	args := m.Called(ctx, product, entry)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string, entry domain.ProductLogEntry) error {
	args := m.Called(ctx, id, entry)
	return args.Error(0)
}

func (m *MockProductRepository) FindLogs(ctx context.Context, filter domain.ProductLogFilter) ([]domain.ProductLogEntry, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.ProductLogEntry), args.Int(1), args.Error(2)
}

func testOperator() domain.Operator {
	return domain.Operator{ID: uuid.New().String(), Name: "operador-teste"}
}

func validProduct() domain.Product {
	return domain.Product{
		SKU:      "SKU-001",
		Name:     "Arroz 5kg",
		Category: "Alimentos",
		Price:    25.90,
		Stock:    10,
		MinStock: 2,
	}
}

// TestCreateProduct_Success testa a criação com log de auditoria de criação.
func TestCreateProduct_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	mockRepo.On("Save", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(p domain.Product) bool {
		return p.Status == domain.StatusActive && p.ID != ""
	}), mock.MatchedBy(func(e domain.ProductLogEntry) bool {
		return e.OperationType == domain.ProductOpCreate && e.BeforeData == nil && e.AfterData != nil
	})).Return(validProduct(), nil)

	created, err := svc.CreateProduct(context.Background(), validProduct(), testOperator(), "")

	assert.NoError(t, err)
	assert.Equal(t, "SKU-001", created.SKU)
	mockRepo.AssertExpectations(t)
}

// TestCreateProduct_ZeroStock_DerivesOutOfStock testa que estoque inicial zero
// deriva o status out_of_stock na criação.
func TestCreateProduct_ZeroStock_DerivesOutOfStock(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	mockRepo.On("Save", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(p domain.Product) bool {
		return p.Status == domain.StatusOutOfStock
	}), mock.AnythingOfType("domain.ProductLogEntry")).Return(domain.Product{Status: domain.StatusOutOfStock}, nil)

	product := validProduct()
	product.Stock = 0

	created, err := svc.CreateProduct(context.Background(), product, testOperator(), "")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusOutOfStock, created.Status)
	mockRepo.AssertExpectations(t)
}

// TestCreateProduct_Fail_Validation testa as validações de entrada do catálogo.
func TestCreateProduct_Fail_Validation(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	cases := []struct {
		name   string
		mutate func(*domain.Product)
	}{
		{"sem SKU", func(p *domain.Product) { p.SKU = "" }},
		{"sem nome", func(p *domain.Product) { p.Name = "" }},
		{"preço zero", func(p *domain.Product) { p.Price = 0 }},
		{"estoque negativo", func(p *domain.Product) { p.Stock = -1 }},
		{"estoque mínimo negativo", func(p *domain.Product) { p.MinStock = -1 }},
	}

	for _, tc := range cases {
		product := validProduct()
		tc.mutate(&product)

		_, err := svc.CreateProduct(context.Background(), product, testOperator(), "")

		assert.Error(t, err, tc.name)
		assert.IsType(t, &apperror.ValidationError{}, err, tc.name)
	}

	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

// TestCreateProduct_Fail_DuplicateSKU testa a propagação do Conflito de SKU.
func TestCreateProduct_Fail_DuplicateSKU(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	mockRepo.On("Save", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.Product"), mock.AnythingOfType("domain.ProductLogEntry")).
		Return(domain.Product{}, apperror.NewConflictError("SKU SKU-001 já existe."))

	_, err := svc.CreateProduct(context.Background(), validProduct(), testOperator(), "")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestUpdateProduct_LogsChangeFields testa que o update grava os campos
// alterados no registro de auditoria.
func TestUpdateProduct_LogsChangeFields(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	id := uuid.New().String()
	existing := validProduct()
	existing.ID = id
	existing.Status = domain.StatusActive

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)
	mockRepo.On("Update", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(p domain.Product) bool {
		return p.Price == 29.90
	}), mock.MatchedBy(func(e domain.ProductLogEntry) bool {
		return e.OperationType == domain.ProductOpUpdate &&
			len(e.ChangeFields) == 1 && e.ChangeFields[0] == "price" &&
			e.BeforeData != nil && e.AfterData != nil
	})).Return(nil)

	newPrice := 29.90
	updated, err := svc.UpdateProduct(context.Background(), id, domain.ProductUpdate{Price: &newPrice}, testOperator())

	assert.NoError(t, err)
	assert.Equal(t, 29.90, updated.Price)
	mockRepo.AssertExpectations(t)
}

// TestUpdateProduct_NoChanges_SkipsWrite testa que um update sem mudança
// efetiva não toca o repositório de escrita nem gera log.
func TestUpdateProduct_NoChanges_SkipsWrite(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	id := uuid.New().String()
	existing := validProduct()
	existing.ID = id

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)

	sameName := existing.Name
	result, err := svc.UpdateProduct(context.Background(), id, domain.ProductUpdate{Name: &sameName}, testOperator())

	assert.NoError(t, err)
	assert.Equal(t, existing.Name, result.Name)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// TestUpdateProduct_StatusOnly_LogsStatusChange testa que mudar só o status
// registra a operação como status_change.
func TestUpdateProduct_StatusOnly_LogsStatusChange(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	id := uuid.New().String()
	existing := validProduct()
	existing.ID = id
	existing.Status = domain.StatusActive

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)
	mockRepo.On("Update", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.Product"), mock.MatchedBy(func(e domain.ProductLogEntry) bool {
		return e.OperationType == domain.ProductOpStatusChange
	})).Return(nil)

	inactive := domain.StatusInactive
	updated, err := svc.UpdateProduct(context.Background(), id, domain.ProductUpdate{Status: &inactive}, testOperator())

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, updated.Status)
	mockRepo.AssertExpectations(t)
}

// TestUpdateProduct_Fail_DerivedStatus testa que out_of_stock não pode ser
// definido à mão: é sempre derivado do estoque.
func TestUpdateProduct_Fail_DerivedStatus(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	id := uuid.New().String()
	existing := validProduct()
	existing.ID = id

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)

	outOfStock := domain.StatusOutOfStock
	_, err := svc.UpdateProduct(context.Background(), id, domain.ProductUpdate{Status: &outOfStock}, testOperator())

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// TestDeleteProduct_LogsSnapshot testa que a exclusão grava o snapshot anterior
// no registro de auditoria.
func TestDeleteProduct_LogsSnapshot(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	id := uuid.New().String()
	existing := validProduct()
	existing.ID = id

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)
	mockRepo.On("Delete", mock.AnythingOfType("context.backgroundCtx"), id, mock.MatchedBy(func(e domain.ProductLogEntry) bool {
		return e.OperationType == domain.ProductOpDelete && e.BeforeData != nil && e.AfterData == nil
	})).Return(nil)

	err := svc.DeleteProduct(context.Background(), id, testOperator(), "Produto descontinuado")

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestGetProductByID_Fail_InvalidUUID testa a validação de formato do ID.
func TestGetProductByID_Fail_InvalidUUID(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLogger := logger.NewLogger("debug")

	svc := productservice.NewService(mockRepo, mockLogger)

	_, err := svc.GetProductByID(context.Background(), "nao-e-uuid")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
