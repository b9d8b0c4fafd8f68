package orderservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
)

// OrderRepository define o contrato que o Serviço de Pedidos espera da camada
// de Persistência.
type OrderRepository interface {
	Save(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, id string) (domain.Order, error)
	FindAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (domain.OrderStats, error)
}

// Service implementa a lógica de negócio de pedidos.
// allowNegativeTotal controla se um desconto maior que o subtotal é aceito
// (comportamento da fonte original) ou rejeitado como erro de validação.
type Service struct {
	repo               OrderRepository
	logger             logger.Logger
	allowNegativeTotal bool
}

// NewService cria e retorna uma nova instância do Serviço de Pedidos.
func NewService(repo OrderRepository, logger logger.Logger, allowNegativeTotal bool) *Service {
	return &Service{repo: repo, logger: logger, allowNegativeTotal: allowNegativeTotal}
}

// CreateOrder valida e cria um novo pedido. O total é SEMPRE calculado aqui
// via domain.ComputeTotal; qualquer valor vindo do chamador é ignorado.
func (s *Service) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.Name == "" || order.Category == "" {
		return domain.Order{}, apperror.NewValidationError("Nome e categoria são obrigatórios para o pedido.")
	}
	if order.Type != domain.OrderOnline && order.Type != domain.OrderOffline {
		return domain.Order{}, apperror.NewValidationError("O tipo do pedido deve ser 'online' ou 'offline'.")
	}
	if order.Quantity <= 0 {
		return domain.Order{}, apperror.NewValidationError("A quantidade deve ser um inteiro positivo.")
	}
	if order.UnitPrice <= 0 {
		return domain.Order{}, apperror.NewValidationError("O preço unitário deve ser positivo.")
	}
	if order.Discount < 0 {
		return domain.Order{}, apperror.NewValidationError("O desconto não pode ser negativo.")
	}

	total := domain.ComputeTotal(order.Quantity, order.UnitPrice, order.Discount)
	if total < 0 && !s.allowNegativeTotal {
		return domain.Order{}, apperror.NewValidationError("O desconto não pode exceder o subtotal do pedido.")
	}
	order.TotalAmount = total

	now := time.Now().UTC()
	order.ID = uuid.New().String()
	order.OrderNumber = newOrderNumber()
	order.Status = domain.OrderPending
	order.PaymentStatus = domain.PaymentUnpaid
	order.OrderDate = now
	order.CompletedDate = nil
	order.CreatedAt = now
	order.UpdatedAt = now

	created, err := s.repo.Save(ctx, order)
	if err != nil {
		if _, ok := err.(apperror.AppError); ok {
			return domain.Order{}, err
		}
		return domain.Order{}, apperror.NewInternalError("Falha interna ao criar pedido.", err)
	}

	s.logger.Info("Pedido criado com sucesso.", map[string]interface{}{
		"id":           created.ID,
		"order_number": created.OrderNumber,
		"total_amount": created.TotalAmount,
	})
	return created, nil
}

// GetOrderByID busca um pedido pelo ID após validação de formato.
func (s *Service) GetOrderByID(ctx context.Context, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, apperror.NewValidationError("O ID do pedido deve ser um UUID válido.")
	}
	return s.repo.FindByID(ctx, id)
}

// ListOrders lista pedidos aplicando valores padrão de paginação.
func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	return s.repo.FindAll(ctx, filter)
}

// UpdateOrder aplica um update parcial sobre o pedido.
// Pedidos em estado terminal (delivered/cancelled) são imutáveis: a tentativa
// é rejeitada com Conflito e o pedido permanece como está. Se quantidade,
// preço unitário ou desconto mudarem, o total é recalculado aqui: o chamador
// nunca fornece TotalAmount.
func (s *Service) UpdateOrder(ctx context.Context, id string, update domain.OrderUpdate) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, apperror.NewValidationError("O ID do pedido deve ser um UUID válido.")
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	if order.Status.IsTerminal() {
		return domain.Order{}, apperror.NewConflictError(
			fmt.Sprintf("Pedido %s está em estado terminal (%s) e não pode ser modificado.", order.OrderNumber, order.Status))
	}

	touchedTotal := false
	if update.Quantity != nil {
		if *update.Quantity <= 0 {
			return domain.Order{}, apperror.NewValidationError("A quantidade deve ser um inteiro positivo.")
		}
		order.Quantity = *update.Quantity
		touchedTotal = true
	}
	if update.UnitPrice != nil {
		if *update.UnitPrice <= 0 {
			return domain.Order{}, apperror.NewValidationError("O preço unitário deve ser positivo.")
		}
		order.UnitPrice = *update.UnitPrice
		touchedTotal = true
	}
	if update.Discount != nil {
		if *update.Discount < 0 {
			return domain.Order{}, apperror.NewValidationError("O desconto não pode ser negativo.")
		}
		order.Discount = *update.Discount
		touchedTotal = true
	}
	if update.Name != nil {
		order.Name = *update.Name
	}
	if update.Category != nil {
		order.Category = *update.Category
	}
	if update.Type != nil {
		if *update.Type != domain.OrderOnline && *update.Type != domain.OrderOffline {
			return domain.Order{}, apperror.NewValidationError("O tipo do pedido deve ser 'online' ou 'offline'.")
		}
		order.Type = *update.Type
	}
	if update.CustomerName != nil {
		order.CustomerName = *update.CustomerName
	}
	if update.CustomerPhone != nil {
		order.CustomerPhone = *update.CustomerPhone
	}
	if update.PaymentMethod != nil {
		order.PaymentMethod = *update.PaymentMethod
	}
	if update.ShippingAddress != nil {
		order.ShippingAddress = *update.ShippingAddress
	}
	if update.Notes != nil {
		order.Notes = *update.Notes
	}
	if update.DeliveryDate != nil {
		order.DeliveryDate = update.DeliveryDate
	}
	if update.PaymentStatus != nil {
		if !update.PaymentStatus.Valid() {
			return domain.Order{}, apperror.NewValidationError(fmt.Sprintf("Status de pagamento inválido: %s", *update.PaymentStatus))
		}
		order.PaymentStatus = *update.PaymentStatus
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return domain.Order{}, apperror.NewValidationError(fmt.Sprintf("Status de pedido inválido: %s", *update.Status))
		}
		order.Status = *update.Status
		if order.Status.IsTerminal() {
			now := time.Now().UTC()
			order.CompletedDate = &now
		}
	}

	// Recalcular o campo derivado junto com as entradas que o determinam.
	if touchedTotal {
		total := domain.ComputeTotal(order.Quantity, order.UnitPrice, order.Discount)
		if total < 0 && !s.allowNegativeTotal {
			return domain.Order{}, apperror.NewValidationError("O desconto não pode exceder o subtotal do pedido.")
		}
		order.TotalAmount = total
	}

	order.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, order); err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("Pedido atualizado com sucesso.", map[string]interface{}{
		"id":           order.ID,
		"status":       string(order.Status),
		"total_amount": order.TotalAmount,
	})
	return order, nil
}

// DeleteOrder remove um pedido, exceto em estado terminal (imutável).
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do pedido deve ser um UUID válido.")
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if order.Status.IsTerminal() {
		return apperror.NewConflictError(
			fmt.Sprintf("Pedido %s está em estado terminal (%s) e não pode ser removido.", order.OrderNumber, order.Status))
	}

	return s.repo.Delete(ctx, id)
}

// GetStats agrega os números do painel de pedidos.
func (s *Service) GetStats(ctx context.Context) (domain.OrderStats, error) {
	return s.repo.Stats(ctx)
}

// newOrderNumber gera um número de pedido legível e único:
// prefixo ORD + timestamp em milissegundos + fragmento de UUID.
func newOrderNumber() string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:4])
	return fmt.Sprintf("ORD%d%s", time.Now().UnixMilli(), fragment)
}
