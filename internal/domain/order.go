package domain

import (
	"time"
)

// OrderStatus é um tipo string para o estado do pedido.
type OrderStatus string

// Constantes para os estados do pedido. O fluxo é, na prática, somente para frente:
// pending -> confirmed -> shipped -> delivered, ou qualquer estado pré-entrega -> cancelled.
const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid informa se o status é um dos cinco conhecidos.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// IsTerminal informa se o pedido chegou a um estado final.
// Pedidos em estado terminal rejeitam tanto update quanto delete.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// PaymentStatus é um tipo string para o estado do pagamento.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid informa se o status de pagamento é conhecido.
func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPaid || s == PaymentRefunded
}

// OrderType distingue pedidos feitos online dos feitos no balcão.
type OrderType string

const (
	OrderOnline  OrderType = "online"
	OrderOffline OrderType = "offline"
)

// Order representa um pedido de venda.
// TotalAmount é SEMPRE derivado de Quantity, UnitPrice e Discount via ComputeTotal;
// nunca é aceito do chamador nem persistido de forma independente.
type Order struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Category        string        `json:"category"`
	Type            OrderType     `json:"type"`
	Quantity        int           `json:"quantity"`
	UnitPrice       float64       `json:"unit_price"`
	Discount        float64       `json:"discount"`
	TotalAmount     float64       `json:"total_amount"`
	OrderNumber     string        `json:"order_number"`
	CustomerID      string        `json:"customer_id,omitempty"`
	CustomerName    string        `json:"customer_name,omitempty"`
	CustomerPhone   string        `json:"customer_phone,omitempty"`
	Status          OrderStatus   `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentMethod   string        `json:"payment_method,omitempty"`
	ShippingAddress string        `json:"shipping_address,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	OrderDate       time.Time     `json:"order_date"`
	DeliveryDate    *time.Time    `json:"delivery_date,omitempty"`
	CompletedDate   *time.Time    `json:"completed_date,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ComputeTotal calcula o total do pedido: quantidade x preço unitário - desconto.
// Função pura, chamada explicitamente em todo create/update que toca um dos três
// campos de entrada (não um hook escondido de persistência). Não aplica piso em
// zero: a política sobre totais negativos fica com a camada de serviço.
func ComputeTotal(quantity int, unitPrice, discount float64) float64 {
	return float64(quantity)*unitPrice - discount
}

// OrderUpdate carrega os campos que podem ser alterados em um update parcial.
// Campos nil não são tocados. TotalAmount não aparece aqui: é recalculado pelo
// serviço sempre que Quantity, UnitPrice ou Discount mudarem.
type OrderUpdate struct {
	Name            *string
	Category        *string
	Type            *OrderType
	Quantity        *int
	UnitPrice       *float64
	Discount        *float64
	CustomerName    *string
	CustomerPhone   *string
	PaymentMethod   *string
	ShippingAddress *string
	Notes           *string
	Status          *OrderStatus
	PaymentStatus   *PaymentStatus
	DeliveryDate    *time.Time
}

// OrderFilter define os parâmetros de busca e paginação de pedidos.
type OrderFilter struct {
	Page          int
	Limit         int
	Status        OrderStatus
	Type          OrderType
	Category      string
	PaymentStatus PaymentStatus
	StartDate     *time.Time
	EndDate       *time.Time
	Keyword       string // busca em número do pedido, nome do cliente e nome do item
}

// OrderStats agrega números básicos para o painel de pedidos.
type OrderStats struct {
	TotalOrders    int     `json:"total_orders"`
	PendingOrders  int     `json:"pending_orders"`
	DeliveredToday int     `json:"delivered_today"`
	TotalRevenue   float64 `json:"total_revenue"`
}
