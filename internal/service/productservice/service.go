package productservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
)

// ProductRepository define o contrato (interface) que este Serviço espera
// da camada de Persistência (DB, Cache). As escritas recebem junto o registro
// de auditoria a ser gravado na mesma transação.
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product, entry domain.ProductLogEntry) (domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (domain.Product, error)
	FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	Update(ctx context.Context, product domain.Product, entry domain.ProductLogEntry) error
	Delete(ctx context.Context, id string, entry domain.ProductLogEntry) error
	FindLogs(ctx context.Context, filter domain.ProductLogFilter) ([]domain.ProductLogEntry, int, error)
}

// Service é a estrutura que implementa a lógica de negócio do catálogo.
type Service struct {
	repo   ProductRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateProduct valida e cria um novo produto, gravando o log de criação junto.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product, operator domain.Operator, reason string) (domain.Product, error) {
	// 1. Validação de Regras de Negócio
	if product.Name == "" || product.SKU == "" || product.Category == "" {
		return domain.Product{}, apperror.NewValidationError("Nome, SKU e categoria são obrigatórios para o produto.")
	}
	if product.Price <= 0 {
		return domain.Product{}, apperror.NewValidationError("O preço do produto deve ser positivo.")
	}
	if product.Stock < 0 {
		return domain.Product{}, apperror.NewValidationError("O estoque inicial não pode ser negativo.")
	}
	if product.MinStock < 0 {
		return domain.Product{}, apperror.NewValidationError("O estoque mínimo não pode ser negativo.")
	}

	// 2. Preenchimento de ID, status derivado e timestamps
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.Status = domain.DeriveStatus(product.Stock, domain.StatusActive)
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	entry := s.newLogEntry(product.ID, product.Name, domain.ProductOpCreate, operator, nil, &product, reason)

	// 3. Delegação para a Camada de Persistência (Repository)
	createdProduct, err := s.repo.Save(ctx, product, entry)
	if err != nil {
		if _, ok := err.(apperror.AppError); ok {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("falha ao salvar produto no repositório: %w", err)
	}

	s.logger.Info("Produto criado com sucesso.", map[string]interface{}{"id": createdProduct.ID, "sku": createdProduct.SKU})
	return createdProduct, nil
}

// GetProductByID busca um produto pelo ID após validação de formato.
func (s *Service) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}
	return s.repo.FindByID(ctx, id)
}

// ListProducts lista o catálogo aplicando valores padrão de paginação.
func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	return s.repo.FindAll(ctx, filter)
}

// UpdateProduct aplica um update parcial de catálogo sobre o produto,
// gravando o log de auditoria com snapshots e campos alterados na mesma transação.
// Estoque não passa por aqui: é domínio exclusivo do motor de mutação.
func (s *Service) UpdateProduct(ctx context.Context, id string, update domain.ProductUpdate, operator domain.Operator) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	after := before
	if update.Name != nil {
		after.Name = *update.Name
	}
	if update.Category != nil {
		after.Category = *update.Category
	}
	if update.Brand != nil {
		after.Brand = *update.Brand
	}
	if update.Price != nil {
		if *update.Price <= 0 {
			return domain.Product{}, apperror.NewValidationError("O preço do produto deve ser positivo.")
		}
		after.Price = *update.Price
	}
	if update.MinStock != nil {
		if *update.MinStock < 0 {
			return domain.Product{}, apperror.NewValidationError("O estoque mínimo não pode ser negativo.")
		}
		after.MinStock = *update.MinStock
	}
	if update.Supplier != nil {
		after.Supplier = *update.Supplier
	}
	if update.Description != nil {
		after.Description = *update.Description
	}
	if update.Image != nil {
		after.Image = *update.Image
	}
	if update.Status != nil {
		// Só active/inactive podem ser definidos à mão; out_of_stock é derivado.
		if *update.Status != domain.StatusActive && *update.Status != domain.StatusInactive {
			return domain.Product{}, apperror.NewValidationError("Status só pode ser definido como active ou inactive.")
		}
		after.Status = domain.DeriveStatus(after.Stock, *update.Status)
	}

	changed := domain.ProductChangeFields(before, after)
	if len(changed) == 0 {
		// Nada mudou: não gravamos log nem tocamos o produto.
		return before, nil
	}

	after.UpdatedAt = time.Now().UTC()

	opType := domain.ProductOpUpdate
	if len(changed) == 1 && changed[0] == "status" {
		opType = domain.ProductOpStatusChange
	}

	entry := s.newLogEntry(after.ID, after.Name, opType, operator, &before, &after, update.Reason)
	entry.ChangeFields = changed

	if err := s.repo.Update(ctx, after, entry); err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Produto atualizado com sucesso.", map[string]interface{}{"id": after.ID, "change_fields": changed})
	return after, nil
}

// DeleteProduct remove o produto do catálogo, registrando a exclusão com o
// snapshot anterior. Os logs que referenciam o produto permanecem: são fatos
// históricos, não dependem do ciclo de vida do produto.
func (s *Service) DeleteProduct(ctx context.Context, id string, operator domain.Operator, reason string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	entry := s.newLogEntry(before.ID, before.Name, domain.ProductOpDelete, operator, &before, nil, reason)
	if err := s.repo.Delete(ctx, id, entry); err != nil {
		return err
	}

	s.logger.Info("Produto removido do catálogo.", map[string]interface{}{"id": id, "sku": before.SKU})
	return nil
}

// ListProductLogs consulta o log de auditoria de catálogo.
func (s *Service) ListProductLogs(ctx context.Context, filter domain.ProductLogFilter) ([]domain.ProductLogEntry, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	return s.repo.FindLogs(ctx, filter)
}

// newLogEntry monta um registro de auditoria de catálogo.
func (s *Service) newLogEntry(productID, productName string, opType domain.ProductOperationType, operator domain.Operator, before, after *domain.Product, reason string) domain.ProductLogEntry {
	entry := domain.ProductLogEntry{
		ID:            uuid.New().String(),
		ProductID:     productID,
		ProductName:   productName,
		OperationType: opType,
		OperatorID:    operator.ID,
		OperatorName:  operator.Name,
		BeforeData:    before,
		AfterData:     after,
		OperationTime: time.Now().UTC(),
	}
	if reason != "" {
		entry.Reason = &reason
	}
	return entry
}
