package domain

import (
	"time"
)

// ProductOperationType é o tipo de operação de catálogo registrada no log de produtos.
type ProductOperationType string

const (
	ProductOpCreate       ProductOperationType = "create"
	ProductOpUpdate       ProductOperationType = "update"
	ProductOpDelete       ProductOperationType = "delete"
	ProductOpStatusChange ProductOperationType = "status_change"
	ProductOpStockChange  ProductOperationType = "stock_change"
)

// ProductLogEntry é o registro imutável de UMA mudança de catálogo.
// BeforeData/AfterData guardam snapshots completos do produto e ChangeFields
// lista os nomes dos campos que diferem entre os dois snapshots.
// Como o log de estoque, sobrevive à exclusão do produto que referencia.
type ProductLogEntry struct {
	ID            string               `json:"id"`
	Seq           int64                `json:"seq"`
	ProductID     string               `json:"product_id"`
	ProductName   string               `json:"product_name"`
	OperationType ProductOperationType `json:"operation_type"`
	OperatorID    string               `json:"operator_id"`
	OperatorName  string               `json:"operator_name"`
	BeforeData    *Product             `json:"before_data,omitempty"`
	AfterData     *Product             `json:"after_data,omitempty"`
	ChangeFields  []string             `json:"change_fields,omitempty"`
	Reason        *string              `json:"reason,omitempty"`
	OperationTime time.Time            `json:"operation_time"`
}

// ProductLogFilter define os parâmetros de consulta do log de catálogo.
type ProductLogFilter struct {
	Page          int
	Limit         int
	ProductID     string
	OperationType ProductOperationType
	OperatorID    string
	StartDate     *time.Time
	EndDate       *time.Time
}

// ProductChangeFields compara dois snapshots campo a campo e devolve os nomes
// (em snake_case, como aparecem no JSON) dos campos de negócio que mudaram.
// Comparação explícita e tipada, em vez de refletir sobre mapas dinâmicos.
func ProductChangeFields(before, after Product) []string {
	var changed []string

	if before.SKU != after.SKU {
		changed = append(changed, "sku")
	}
	if before.Name != after.Name {
		changed = append(changed, "name")
	}
	if before.Category != after.Category {
		changed = append(changed, "category")
	}
	if before.Brand != after.Brand {
		changed = append(changed, "brand")
	}
	if before.Price != after.Price {
		changed = append(changed, "price")
	}
	if before.Stock != after.Stock {
		changed = append(changed, "stock")
	}
	if before.MinStock != after.MinStock {
		changed = append(changed, "min_stock")
	}
	if before.Supplier != after.Supplier {
		changed = append(changed, "supplier")
	}
	if before.Status != after.Status {
		changed = append(changed, "status")
	}
	if before.Description != after.Description {
		changed = append(changed, "description")
	}
	if before.Image != after.Image {
		changed = append(changed, "image")
	}

	return changed
}
