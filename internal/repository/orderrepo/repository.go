package orderrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"supermart/internal/domain"
	"supermart/internal/errors"
	"supermart/internal/pkg/logger"
)

// OrderRepository implementa a persistência de pedidos.
type OrderRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewOrderRepository cria e retorna uma nova instância do Repositório de Pedidos.
func NewOrderRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const orderColumns = `id, name, category, type, quantity, unit_price, discount, total_amount,
    order_number, customer_id, customer_name, customer_phone, status, payment_status,
    payment_method, shipping_address, notes, order_date, delivery_date, completed_date,
    created_at, updated_at`

// Save insere um novo pedido.
func (r *OrderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO orders (` + orderColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		order.ID, order.Name, order.Category, string(order.Type), order.Quantity,
		order.UnitPrice, order.Discount, order.TotalAmount, order.OrderNumber,
		nullString(order.CustomerID), nullString(order.CustomerName), nullString(order.CustomerPhone),
		string(order.Status), string(order.PaymentStatus), nullString(order.PaymentMethod),
		nullString(order.ShippingAddress), nullString(order.Notes),
		order.OrderDate, order.DeliveryDate, order.CompletedDate,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir pedido no DB.", err)
		return domain.Order{}, errors.NewDBError("Falha ao criar pedido", err)
	}

	return order, nil
}

// FindByID busca um pedido pelo ID.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Order{}, errors.NewNotFoundError(fmt.Sprintf("Pedido com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.Order{}, errors.NewDBError("Falha ao buscar pedido", err)
	}
	return order, nil
}

// FindAll lista pedidos com filtros e paginação, ordenados pela data do pedido.
func (r *OrderRepository) FindAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
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
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.PaymentStatus != "" {
		add("payment_status = $%d", string(filter.PaymentStatus))
	}
	if filter.StartDate != nil {
		add("order_date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("order_date <= $%d", *filter.EndDate)
	}
	if filter.Keyword != "" {
		args = append(args, "%"+filter.Keyword+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(order_number ILIKE $%d OR customer_name ILIKE $%d OR name ILIKE $%d)", n, n, n))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctxTimeout, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewDBError("Falha ao contar pedidos", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(" ORDER BY order_date DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := r.DB.QueryContext(ctxTimeout, query, append(args, filter.Limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewDBError("Falha ao listar pedidos", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, errors.NewDBError("Falha ao mapear pedido", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewDBError("Falha ao iterar pedidos", err)
	}

	return orders, total, nil
}

// Update persiste o estado completo do pedido (o serviço já aplicou as mudanças
// e recalculou o total derivado).
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        UPDATE orders
        SET name = $1, category = $2, type = $3, quantity = $4, unit_price = $5,
            discount = $6, total_amount = $7, customer_name = $8, customer_phone = $9,
            status = $10, payment_status = $11, payment_method = $12,
            shipping_address = $13, notes = $14, delivery_date = $15,
            completed_date = $16, updated_at = $17
        WHERE id = $18`

	result, err := r.DB.ExecContext(ctxTimeout, query,
		order.Name, order.Category, string(order.Type), order.Quantity, order.UnitPrice,
		order.Discount, order.TotalAmount, nullString(order.CustomerName), nullString(order.CustomerPhone),
		string(order.Status), string(order.PaymentStatus), nullString(order.PaymentMethod),
		nullString(order.ShippingAddress), nullString(order.Notes), order.DeliveryDate,
		order.CompletedDate, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return errors.NewDBError("Falha ao atualizar pedido", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Pedido com ID %s não existe na base de dados.", order.ID))
	}

	return nil
}

// Delete remove um pedido. A verificação de estado terminal é feita no serviço,
// que lê o pedido antes de chegar aqui.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.NewDBError("Falha ao deletar pedido", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Pedido com ID %s não existe na base de dados.", id))
	}
	return nil
}

// Stats agrega os números básicos do painel de pedidos.
func (r *OrderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'pending'),
            COUNT(*) FILTER (WHERE status = 'delivered' AND completed_date::date = CURRENT_DATE),
            COALESCE(SUM(total_amount), 0)
        FROM orders`

	var stats domain.OrderStats
	err := r.DB.QueryRowContext(ctxTimeout, query).Scan(
		&stats.TotalOrders, &stats.PendingOrders, &stats.DeliveredToday, &stats.TotalRevenue,
	)
	if err != nil {
		return domain.OrderStats{}, errors.NewDBError("Falha ao agregar estatísticas de pedidos", err)
	}
	return stats, nil
}

// rowScanner cobre *sql.Row e *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanOrder mapeia uma linha da tabela orders para a struct de domínio.
func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o               domain.Order
		customerID      sql.NullString
		customerName    sql.NullString
		customerPhone   sql.NullString
		paymentMethod   sql.NullString
		shippingAddress sql.NullString
		notes           sql.NullString
		deliveryDate    sql.NullTime
		completedDate   sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.Category, &o.Type, &o.Quantity, &o.UnitPrice, &o.Discount,
		&o.TotalAmount, &o.OrderNumber, &customerID, &customerName, &customerPhone,
		&o.Status, &o.PaymentStatus, &paymentMethod, &shippingAddress, &notes,
		&o.OrderDate, &deliveryDate, &completedDate, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.CustomerID = customerID.String
	o.CustomerName = customerName.String
	o.CustomerPhone = customerPhone.String
	o.PaymentMethod = paymentMethod.String
	o.ShippingAddress = shippingAddress.String
	o.Notes = notes.String
	if deliveryDate.Valid {
		o.DeliveryDate = &deliveryDate.Time
	}
	if completedDate.Valid {
		o.CompletedDate = &completedDate.Time
	}
	return o, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
