package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"supermart/internal/domain"
	"supermart/internal/errors"
	"supermart/internal/pkg/cache"
	"supermart/internal/pkg/logger"
)

// ProductRepository implementa a persistência do catálogo de produtos e do seu
// log de auditoria (product_logs). Toda escrita de catálogo grava o produto e a
// linha de log na mesma transação.
type ProductRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

const productColumns = `id, sku, name, category, brand, price, stock, min_stock, supplier, status, description, image, sales, created_at, updated_at`

// uniqueViolation é o código de erro do PostgreSQL para violação de constraint UNIQUE.
const uniqueViolation = "23505"

// Save persiste um novo Produto e o registro de auditoria de criação,
// ambos na mesma transação.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product, entry domain.ProductLogEntry) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	const productSQL = `
        INSERT INTO products (` + productColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err = tx.ExecContext(ctxTimeout, productSQL,
		product.ID, product.SKU, product.Name, product.Category, product.Brand,
		product.Price, product.Stock, product.MinStock, product.Supplier,
		string(product.Status), product.Description, product.Image, product.Sales,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return domain.Product{}, errors.NewConflictError(fmt.Sprintf("SKU %s já existe.", product.SKU))
		}
		return domain.Product{}, errors.NewDBError("Falha ao inserir produto", err)
	}

	if err = r.insertLog(ctxTimeout, tx, entry); err != nil {
		return domain.Product{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	return product, nil
}

// FindByID busca um produto pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, id)
	var product domain.Product

	// 1. Tentar obter do Cache (Redis)
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		// Cache HIT
		if json.Unmarshal([]byte(cachedData), &product) == nil {
			return product, nil
		}
		// Se a desserialização falhar, seguimos para o DB
	}

	// 2. Busca no Banco de Dados (PostgreSQL)
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err = scanProduct(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto no DB", err)
	}

	// 3. Popular o cache para futuras requisições (falha de cache não é fatal)
	if productJSON, marshalErr := json.Marshal(product); marshalErr == nil {
		r.Cache.Set(ctxTimeout, key, productJSON, r.CacheTTL)
	}

	return product, nil
}

// FindBySKU busca um produto pela chave de negócio (SKU).
// Usado pelo processador de importação em lote para resolver linhas da planilha.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`
	product, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query, sku))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com SKU %s não existe na base de dados.", sku))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto por SKU", err)
	}
	return product, nil
}

// FindAll lista o catálogo com filtros de busca e paginação.
func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		clauses []string
		args    []interface{}
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", len(args), len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctxTimeout, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewDBError("Falha ao contar produtos", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := r.DB.QueryContext(ctxTimeout, query, append(args, filter.Limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewDBError("Falha ao listar produtos", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, errors.NewDBError("Falha ao mapear produto", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewDBError("Falha ao iterar produtos", err)
	}

	return products, total, nil
}

// Update persiste as alterações de catálogo de um produto e o registro de auditoria
// correspondente na mesma transação, invalidando o cache ao final.
// O campo stock NÃO é tocado aqui: mudanças de estoque pertencem ao motor de mutação.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product, entry domain.ProductLogEntry) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	const updateSQL = `
        UPDATE products
        SET name = $1, category = $2, brand = $3, price = $4, min_stock = $5,
            supplier = $6, status = $7, description = $8, image = $9, updated_at = $10
        WHERE id = $11`

	result, err := tx.ExecContext(ctxTimeout, updateSQL,
		product.Name, product.Category, product.Brand, product.Price, product.MinStock,
		product.Supplier, string(product.Status), product.Description, product.Image,
		product.UpdatedAt, product.ID,
	)
	if err != nil {
		return errors.NewDBError("Falha ao atualizar produto", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", product.ID))
	}

	if err = r.insertLog(ctxTimeout, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.NewDBError("Falha ao commitar transação", err)
	}

	r.invalidate(ctxTimeout, product.ID)
	return nil
}

// Delete remove o produto e grava o registro de auditoria de exclusão na mesma
// transação. As linhas de log que referenciam o produto ficam órfãs de propósito:
// são fatos históricos e sobrevivem à exclusão.
func (r *ProductRepository) Delete(ctx context.Context, id string, entry domain.ProductLogEntry) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctxTimeout, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return errors.NewDBError("Falha ao deletar produto", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}

	if err = r.insertLog(ctxTimeout, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.NewDBError("Falha ao commitar transação", err)
	}

	r.invalidate(ctxTimeout, id)
	return nil
}

// FindLogs consulta o log de auditoria de catálogo com filtros e paginação.
// Mesma disciplina de ordenação do livro de estoque: tempo DESC, seq DESC.
func (r *ProductRepository) FindLogs(ctx context.Context, filter domain.ProductLogFilter) ([]domain.ProductLogEntry, int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

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

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctxTimeout, "SELECT COUNT(*) FROM product_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewDBError("Falha ao contar logs de produto", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := `
        SELECT id, seq, product_id, product_name, operation_type, operator_id, operator_name,
               before_data, after_data, change_fields, reason, operation_time
        FROM product_logs` + where +
		fmt.Sprintf(" ORDER BY operation_time DESC, seq DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := r.DB.QueryContext(ctxTimeout, query, append(args, filter.Limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewDBError("Falha ao buscar logs de produto", err)
	}
	defer rows.Close()

	var entries []domain.ProductLogEntry
	for rows.Next() {
		var (
			e            domain.ProductLogEntry
			beforeData   []byte
			afterData    []byte
			changeFields []byte
			reason       sql.NullString
		)
		err := rows.Scan(
			&e.ID, &e.Seq, &e.ProductID, &e.ProductName, &e.OperationType,
			&e.OperatorID, &e.OperatorName, &beforeData, &afterData, &changeFields,
			&reason, &e.OperationTime,
		)
		if err != nil {
			return nil, 0, errors.NewDBError("Falha ao mapear log de produto", err)
		}

		if len(beforeData) > 0 {
			var p domain.Product
			if json.Unmarshal(beforeData, &p) == nil {
				e.BeforeData = &p
			}
		}
		if len(afterData) > 0 {
			var p domain.Product
			if json.Unmarshal(afterData, &p) == nil {
				e.AfterData = &p
			}
		}
		if len(changeFields) > 0 {
			json.Unmarshal(changeFields, &e.ChangeFields)
		}
		if reason.Valid {
			e.Reason = &reason.String
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewDBError("Falha ao iterar logs de produto", err)
	}

	return entries, total, nil
}

// insertLog grava uma linha no log de auditoria de catálogo dentro da transação dada.
// Falha aqui desfaz a escrita de catálogo junto: auditoria não é melhor esforço.
func (r *ProductRepository) insertLog(ctx context.Context, tx *sql.Tx, entry domain.ProductLogEntry) error {
	var beforeData, afterData, changeFields []byte
	var err error

	if entry.BeforeData != nil {
		if beforeData, err = json.Marshal(entry.BeforeData); err != nil {
			return errors.NewInternalError("Falha ao serializar snapshot anterior", err)
		}
	}
	if entry.AfterData != nil {
		if afterData, err = json.Marshal(entry.AfterData); err != nil {
			return errors.NewInternalError("Falha ao serializar snapshot posterior", err)
		}
	}
	if len(entry.ChangeFields) > 0 {
		if changeFields, err = json.Marshal(entry.ChangeFields); err != nil {
			return errors.NewInternalError("Falha ao serializar campos alterados", err)
		}
	}

	const logSQL = `
        INSERT INTO product_logs
            (id, product_id, product_name, operation_type, operator_id, operator_name,
             before_data, after_data, change_fields, reason, operation_time)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err = tx.ExecContext(ctx, logSQL,
		entry.ID, entry.ProductID, entry.ProductName, string(entry.OperationType),
		entry.OperatorID, entry.OperatorName,
		nullBytes(beforeData), nullBytes(afterData), nullBytes(changeFields),
		nullStringValue(entry.Reason), entry.OperationTime,
	)
	if err != nil {
		r.logger.Error("Falha ao gravar log de produto. Transação será desfeita.", err)
		return errors.NewDBError("Falha ao gravar log de produto", err)
	}
	return nil
}

// invalidate remove o produto do cache depois de uma escrita.
func (r *ProductRepository) invalidate(ctx context.Context, id string) {
	if err := r.Cache.Delete(ctx, fmt.Sprintf(productCacheKey, id)); err != nil {
		r.logger.Warn("Falha ao invalidar cache de produto.", map[string]interface{}{"product_id": id, "error": err.Error()})
	}
}

// rowScanner cobre *sql.Row e *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProduct mapeia uma linha da tabela products para a struct de domínio.
func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p           domain.Product
		brand       sql.NullString
		supplier    sql.NullString
		description sql.NullString
		image       sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Category, &brand, &p.Price, &p.Stock, &p.MinStock,
		&supplier, &p.Status, &description, &image, &p.Sales, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	p.Brand = brand.String
	p.Supplier = supplier.String
	p.Description = description.String
	p.Image = image.String
	return p, nil
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullStringValue(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
