package orderservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
	"supermart/internal/service/orderservice"
)

// MockOrderRepository é uma implementação mock da interface OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) Update(ctx context.Context, order domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.OrderStats), args.Error(1)
}

func validOrder() domain.Order {
	return domain.Order{
		Name:      "Arroz 5kg",
		Category:  "Alimentos",
		Type:      domain.OrderOffline,
		Quantity:  3,
		UnitPrice: 10.00,
		Discount:  5.00,
	}
}

// TestCreateOrder_ComputesTotal testa que o total é calculado no servidor:
// 3 x 10.00 - 5.00 = 25.00, ignorando qualquer valor do chamador.
func TestCreateOrder_ComputesTotal(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	mockRepo.On("Save", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(o domain.Order) bool {
		return o.TotalAmount == 25.00 && o.Status == domain.OrderPending && o.PaymentStatus == domain.PaymentUnpaid
	})).Return(domain.Order{TotalAmount: 25.00, Status: domain.OrderPending}, nil)

	order := validOrder()
	order.TotalAmount = 999.99 // valor do chamador deve ser ignorado

	created, err := svc.CreateOrder(context.Background(), order)

	assert.NoError(t, err)
	assert.Equal(t, 25.00, created.TotalAmount)
	mockRepo.AssertExpectations(t)
}

// TestCreateOrder_NegativeTotal_Allowed testa o comportamento padrão:
// desconto maior que o subtotal produz total negativo e é aceito.
func TestCreateOrder_NegativeTotal_Allowed(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	mockRepo.On("Save", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(o domain.Order) bool {
		return o.TotalAmount == -20.00
	})).Return(domain.Order{TotalAmount: -20.00}, nil)

	order := validOrder()
	order.Quantity = 1
	order.UnitPrice = 10.00
	order.Discount = 30.00

	created, err := svc.CreateOrder(context.Background(), order)

	assert.NoError(t, err)
	assert.Equal(t, -20.00, created.TotalAmount)
	mockRepo.AssertExpectations(t)
}

// TestCreateOrder_NegativeTotal_Rejected testa o modo estrito: com a flag
// desligada, total negativo é rejeitado sem tocar o repositório.
func TestCreateOrder_NegativeTotal_Rejected(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, false)

	order := validOrder()
	order.Quantity = 1
	order.UnitPrice = 10.00
	order.Discount = 30.00

	_, err := svc.CreateOrder(context.Background(), order)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestCreateOrder_Fail_Validation testa as validações de entrada do pedido.
func TestCreateOrder_Fail_Validation(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	cases := []struct {
		name   string
		mutate func(*domain.Order)
	}{
		{"sem nome", func(o *domain.Order) { o.Name = "" }},
		{"tipo inválido", func(o *domain.Order) { o.Type = "marketplace" }},
		{"quantidade zero", func(o *domain.Order) { o.Quantity = 0 }},
		{"preço zero", func(o *domain.Order) { o.UnitPrice = 0 }},
		{"desconto negativo", func(o *domain.Order) { o.Discount = -1 }},
	}

	for _, tc := range cases {
		order := validOrder()
		tc.mutate(&order)

		_, err := svc.CreateOrder(context.Background(), order)

		assert.Error(t, err, tc.name)
		assert.IsType(t, &apperror.ValidationError{}, err, tc.name)
	}

	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestUpdateOrder_RecomputesTotal testa que mudar a quantidade recalcula o
// total derivado: 3 -> 5 unidades a 10.00 com desconto 5.00 dá 45.00.
func TestUpdateOrder_RecomputesTotal(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	id := uuid.New().String()
	existing := validOrder()
	existing.ID = id
	existing.OrderNumber = "ORD1001"
	existing.Status = domain.OrderPending
	existing.PaymentStatus = domain.PaymentUnpaid
	existing.TotalAmount = 25.00

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)
	mockRepo.On("Update", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(o domain.Order) bool {
		return o.Quantity == 5 && o.TotalAmount == 45.00
	})).Return(nil)

	newQuantity := 5
	updated, err := svc.UpdateOrder(context.Background(), id, domain.OrderUpdate{Quantity: &newQuantity})

	assert.NoError(t, err)
	assert.Equal(t, 45.00, updated.TotalAmount)
	mockRepo.AssertExpectations(t)
}

// TestUpdateOrder_Fail_TerminalState testa que pedidos entregues ou cancelados
// são imutáveis: o update é rejeitado com Conflito e nada é persistido.
func TestUpdateOrder_Fail_TerminalState(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	for _, status := range []domain.OrderStatus{domain.OrderDelivered, domain.OrderCancelled} {
		id := uuid.New().String()
		existing := validOrder()
		existing.ID = id
		existing.OrderNumber = "ORD1002"
		existing.Status = status

		mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)

		newName := "Outro item"
		_, err := svc.UpdateOrder(context.Background(), id, domain.OrderUpdate{Name: &newName})

		assert.Error(t, err)
		assert.IsType(t, &apperror.ConflictError{}, err)
		assert.Contains(t, err.Error(), "terminal")
	}

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestUpdateOrder_TerminalTransition_SetsCompletedDate testa que entregar um
// pedido preenche a data de conclusão.
func TestUpdateOrder_TerminalTransition_SetsCompletedDate(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	id := uuid.New().String()
	existing := validOrder()
	existing.ID = id
	existing.OrderNumber = "ORD1003"
	existing.Status = domain.OrderShipped

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)
	mockRepo.On("Update", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(o domain.Order) bool {
		return o.Status == domain.OrderDelivered && o.CompletedDate != nil
	})).Return(nil)

	delivered := domain.OrderDelivered
	updated, err := svc.UpdateOrder(context.Background(), id, domain.OrderUpdate{Status: &delivered})

	assert.NoError(t, err)
	assert.NotNil(t, updated.CompletedDate)
	assert.WithinDuration(t, time.Now().UTC(), *updated.CompletedDate, 5*time.Second)
	mockRepo.AssertExpectations(t)
}

// TestDeleteOrder_Fail_TerminalState testa que pedidos em estado terminal
// também não podem ser removidos.
func TestDeleteOrder_Fail_TerminalState(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	id := uuid.New().String()
	existing := validOrder()
	existing.ID = id
	existing.OrderNumber = "ORD1004"
	existing.Status = domain.OrderCancelled

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)

	err := svc.DeleteOrder(context.Background(), id)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// TestDeleteOrder_Success testa a remoção de um pedido não-terminal.
func TestDeleteOrder_Success(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	id := uuid.New().String()
	existing := validOrder()
	existing.ID = id
	existing.Status = domain.OrderPending

	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), id).Return(existing, nil)
	mockRepo.On("Delete", mock.AnythingOfType("context.backgroundCtx"), id).Return(nil)

	err := svc.DeleteOrder(context.Background(), id)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestGetOrderByID_Fail_InvalidUUID testa a validação de formato do ID.
func TestGetOrderByID_Fail_InvalidUUID(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockLogger := logger.NewLogger("debug")

	svc := orderservice.NewService(mockRepo, mockLogger, true)

	_, err := svc.GetOrderByID(context.Background(), "nao-e-uuid")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
