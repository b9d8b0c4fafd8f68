package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"supermart/internal/domain"
)

// TestComputeTotal verifica o cálculo do total derivado do pedido.
func TestComputeTotal(t *testing.T) {
	// 3 x 10.00 - 5.00 = 25.00
	assert.Equal(t, 25.00, domain.ComputeTotal(3, 10.00, 5.00))

	// Sem desconto
	assert.Equal(t, 30.00, domain.ComputeTotal(3, 10.00, 0))

	// Desconto maior que o subtotal produz total negativo: a função não
	// aplica piso, a política fica com o serviço.
	assert.Equal(t, -20.00, domain.ComputeTotal(1, 10.00, 30.00))
}

// TestOrderStatusIsTerminal verifica quais estados são finais.
func TestOrderStatusIsTerminal(t *testing.T) {
	assert.True(t, domain.OrderDelivered.IsTerminal())
	assert.True(t, domain.OrderCancelled.IsTerminal())

	assert.False(t, domain.OrderPending.IsTerminal())
	assert.False(t, domain.OrderConfirmed.IsTerminal())
	assert.False(t, domain.OrderShipped.IsTerminal())
}

// TestOrderStatusValid verifica a validação dos estados conhecidos.
func TestOrderStatusValid(t *testing.T) {
	assert.True(t, domain.OrderPending.Valid())
	assert.True(t, domain.OrderCancelled.Valid())
	assert.False(t, domain.OrderStatus("returned").Valid())
}
