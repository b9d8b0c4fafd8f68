package domain

import (
	"errors"
	"time"
)

// OperationType é um tipo string para o tipo de movimentação de estoque.
type OperationType string

// Constantes para os tipos de operação de estoque.
const (
	OperationIn     OperationType = "in"     // Entrada de mercadoria
	OperationOut    OperationType = "out"    // Saída de mercadoria
	OperationAdjust OperationType = "adjust" // Ajuste para um valor absoluto
)

// Valid informa se o tipo de operação é um dos três conhecidos.
func (t OperationType) Valid() bool {
	return t == OperationIn || t == OperationOut || t == OperationAdjust
}

// Erros sentinela da aritmética de mutação de estoque. O repositório os traduz
// para a taxonomia de erros HTTP, anexando o contexto do produto.
var (
	ErrInsufficientStock = errors.New("estoque insuficiente para a saída solicitada")
	ErrNegativeStock     = errors.New("a mutação resultaria em estoque negativo")
	ErrUnknownOperation  = errors.New("tipo de operação de estoque desconhecido")
)

// ComputeStockDelta calcula o delta com sinal e o estoque resultante de uma
// mutação, sem tocar em persistência. Para in/out, quantity é a quantidade
// positiva informada pelo chamador; para adjust, target é o estoque absoluto
// desejado e o delta pode ser negativo. Garante as invariantes do livro de
// auditoria: after == current + delta e after >= 0; uma saída maior que o
// estoque atual é rejeitada antes de qualquer escrita.
func ComputeStockDelta(op OperationType, current, quantity, target int) (delta, after int, err error) {
	switch op {
	case OperationIn:
		delta = quantity
	case OperationOut:
		if current < quantity {
			return 0, 0, ErrInsufficientStock
		}
		delta = -quantity
	case OperationAdjust:
		delta = target - current
	default:
		return 0, 0, ErrUnknownOperation
	}

	after = current + delta
	if after < 0 {
		return 0, 0, ErrNegativeStock
	}
	return delta, after, nil
}

// InventoryLogEntry é o registro imutável de UMA mudança de estoque.
// Nunca é atualizado nem deletado depois de inserido (append-only).
// Invariantes garantidas pelo motor: AfterStock == BeforeStock + Quantity
// e AfterStock >= 0, sempre.
type InventoryLogEntry struct {
	ID            string        `json:"id"`
	Seq           int64         `json:"seq"` // sequência monotônica, desempate da ordenação por tempo
	ProductID     string        `json:"product_id"`
	ProductName   string        `json:"product_name"` // snapshot do nome no momento da operação
	OperationType OperationType `json:"operation_type"`
	Quantity      int           `json:"quantity"` // delta com sinal: positivo para in, negativo para out
	BeforeStock   int           `json:"before_stock"`
	AfterStock    int           `json:"after_stock"`
	UnitCost      *float64      `json:"unit_cost,omitempty"`
	TotalCost     *float64      `json:"total_cost,omitempty"` // UnitCost * |Quantity|
	BatchNumber   *string       `json:"batch_number,omitempty"`
	Supplier      *string       `json:"supplier,omitempty"`
	OperatorID    string        `json:"operator_id"`
	OperatorName  string        `json:"operator_name"`
	Reason        *string       `json:"reason,omitempty"`
	OperationTime time.Time     `json:"operation_time"`
}

// InventoryLogFilter define os parâmetros de consulta do livro de auditoria de estoque.
type InventoryLogFilter struct {
	Page          int
	Limit         int
	ProductID     string
	OperationType OperationType
	OperatorID    string
	StartDate     *time.Time
	EndDate       *time.Time
}

// StockChangeCommand é o comando validado que o motor de mutação de estoque executa.
// Para in/out, Quantity é a quantidade positiva informada pelo chamador (o motor
// aplica o sinal). Para adjust, TargetStock é o valor absoluto desejado e o motor
// calcula o delta sozinho.
type StockChangeCommand struct {
	ProductID     string
	OperationType OperationType
	Quantity      int // in/out: quantidade positiva
	TargetStock   int // adjust: estoque alvo (>= 0)
	UnitCost      *float64
	BatchNumber   string
	Supplier      string
	Reason        string
	Operator      Operator
}

// StockChangeResult é o resultado de uma mutação aceita: o snapshot antes/depois
// e o ID do registro de auditoria criado na mesma transação.
type StockChangeResult struct {
	LogID       string `json:"log_id"`
	BeforeStock int    `json:"before_stock"`
	AfterStock  int    `json:"after_stock"`
}

// BatchRow é uma linha já tipada da planilha de importação em lote.
// RowNumber é o número da linha na planilha original (dados começam na linha 2),
// usado para reportar falhas de forma rastreável.
type BatchRow struct {
	RowNumber   int
	SKU         string
	Quantity    int
	UnitCost    *float64
	BatchNumber string
	Supplier    string
	Reason      string
}

// BatchRowResult descreve uma linha processada com sucesso.
type BatchRowResult struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	BeforeStock int    `json:"before_stock"`
	AfterStock  int    `json:"after_stock"`
}

// BatchRowError descreve uma linha rejeitada, com o motivo e a linha de origem.
type BatchRowError struct {
	RowNumber int    `json:"row_number"`
	Reason    string `json:"reason"`
}

// BatchResult é a contabilidade fiel do lote: cada linha aparece exatamente uma vez,
// ou em Succeeded (na ordem em que foi aplicada) ou em Failed (na ordem de entrada).
// Uma linha que falha nunca desfaz as linhas que já tiveram sucesso.
type BatchResult struct {
	Succeeded []BatchRowResult `json:"succeeded"`
	Failed    []BatchRowError  `json:"failed"`
}
