package userservice

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
	"supermart/internal/pkg/token"
)

// UserRepository define o contrato de persistência que o serviço espera.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
}

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(userID, username, role string) (string, error)
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// UserService implementa o registro e a autenticação de usuários.
type UserService struct {
	UserRepo UserRepository
	TokenSvc TokenService
	logger   logger.Logger
}

// NewService cria uma nova instância do UserService, injetando o Repositório.
func NewService(repo UserRepository, tokenSvc TokenService, logger logger.Logger) *UserService {
	return &UserService{
		UserRepo: repo,
		TokenSvc: tokenSvc,
		logger:   logger,
	}
}

// Register registra um novo usuário no sistema.
// Ele faz o hashing da senha e lida com validações básicas.
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	// 1. Validação Básica
	if registration.Username == "" || registration.Password == "" {
		return domain.User{}, apperror.NewValidationError("Nome de usuário e senha são obrigatórios.")
	}
	if len(registration.Password) < 6 {
		return domain.User{}, apperror.NewValidationError("A senha deve ter pelo menos 6 caracteres.")
	}

	role := registration.Role
	if role == "" {
		role = domain.RoleStaff // Role padrão
	}
	if role != domain.RoleAdmin && role != domain.RoleManager && role != domain.RoleStaff {
		return domain.User{}, apperror.NewValidationError("Role de usuário desconhecida.")
	}

	// 2. Hashing da Senha
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	// 3. Criação do Objeto User
	newUser := domain.User{
		Username:     registration.Username,
		PasswordHash: string(hashedPassword),
		Name:         registration.Name,
		Role:         role,
		Status:       domain.UserStatusActive,
	}

	// 4. Chamada ao Repositório para Persistência
	// O repositório já traduz violação de unicidade para ConflictError.
	user, err := s.UserRepo.Save(ctx, newUser)
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("Usuário registrado com sucesso.", map[string]interface{}{"user_id": user.ID, "username": user.Username})
	return user, nil
}

// Login autentica um usuário, verifica a senha e gera um JWT.
// As claims do token carregam a identidade do operador (ID + username) que
// assinará toda mutação auditada feita com ele.
func (s *UserService) Login(ctx context.Context, username string, password string) (string, error) {
	// 1. Validação Básica
	if username == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Nome de usuário e senha são obrigatórios.")
	}

	// 2. Buscar Usuário
	user, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		// NotFound vira Unauthorized para não dar dicas a invasores.
		if _, ok := err.(*apperror.NotFoundError); ok {
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return "", err
	}

	// 3. Verificar Status da Conta
	// Contas desativadas não podem autenticar nem assinar mutações auditadas.
	if user.Status != domain.UserStatusActive {
		return "", apperror.NewUnauthorizedError("Usuário desativado. Contate o administrador.")
	}

	// 4. Comparar Senhas (Hashing)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	// 5. Gerar JWT
	tokenString, err := s.TokenSvc.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	return tokenString, nil
}
