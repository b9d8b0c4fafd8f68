package domain

import (
	"time"
)

// ProductStatus é um tipo string para representar o estado do produto no catálogo.
type ProductStatus string

// Constantes para os estados possíveis do produto.
const (
	StatusActive     ProductStatus = "active"       // Produto disponível para venda
	StatusInactive   ProductStatus = "inactive"     // Produto retirado manualmente do catálogo
	StatusOutOfStock ProductStatus = "out_of_stock" // Produto sem estoque (derivado, nunca definido à mão)
)

// Product representa o item principal do catálogo (a Entidade).
// O campo Stock é a fonte autoritativa da quantidade em estoque:
// toda alteração dele passa pelo motor de mutação de estoque, nunca por update direto.
type Product struct {
	ID          string        `json:"id"`
	SKU         string        `json:"sku"` // Stock Keeping Unit (código único de produto)
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Brand       string        `json:"brand,omitempty"`
	Price       float64       `json:"price"`
	Stock       int           `json:"stock"`
	MinStock    int           `json:"min_stock"`
	Supplier    string        `json:"supplier,omitempty"`
	Status      ProductStatus `json:"status"`
	Description string        `json:"description,omitempty"`
	Image       string        `json:"image,omitempty"`
	Sales       int           `json:"sales"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// DeriveStatus aplica a regra de derivação do status a partir do estoque.
// É uma função nomeada e explícita (não um hook de persistência) para que a
// invariante seja visível no ponto de mutação e testável isoladamente:
//   - estoque 0 e produto não-inativo  => out_of_stock
//   - estoque > 0 vindo de out_of_stock => active
//   - inactive nunca muda sozinho, independente do estoque
func DeriveStatus(stock int, current ProductStatus) ProductStatus {
	if current == StatusInactive {
		return StatusInactive
	}
	if stock == 0 {
		return StatusOutOfStock
	}
	if current == StatusOutOfStock {
		return StatusActive
	}
	return current
}

// ProductFilter define os parâmetros de busca e paginação do catálogo.
type ProductFilter struct {
	Page     int
	Limit    int
	Search   string // busca por nome ou SKU
	Category string
	Status   ProductStatus
}

// ProductUpdate carrega os campos de catálogo que podem ser alterados em um update.
// Campos nil não são tocados. Stock NÃO aparece aqui de propósito: mudanças de
// estoque passam obrigatoriamente pelo motor de mutação, que gera o registro de auditoria.
type ProductUpdate struct {
	Name        *string
	Category    *string
	Brand       *string
	Price       *float64
	MinStock    *int
	Supplier    *string
	Status      *ProductStatus
	Description *string
	Image       *string
	Reason      string
}
