package domain

import "time"

// User representa a entidade do usuário no sistema.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Oculta o hash da senha no JSON de resposta
	Name         string     `json:"name"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

// Constantes para os papéis de usuário.
const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleStaff   UserRole = "staff"
)

// UserStatus indica se a conta pode autenticar.
// Contas inativas permanecem no banco (a atribuição nos logs de auditoria
// continua resolvível), mas o login é recusado.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// UserRegistration representa o payload de entrada para o registro.
type UserRegistration struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
}

// Operator é a identidade já autenticada que assina toda mutação auditada.
// Vem das claims do JWT resolvidas pelo middleware de autenticação; o núcleo
// a recebe pronta como pré-condição e a grava nos registros de auditoria.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
