package userservice_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"supermart/internal/domain"
	apperror "supermart/internal/errors"
	"supermart/internal/pkg/logger"
	"supermart/internal/pkg/token"
	"supermart/internal/service/userservice"
)

// MockUserRepository é uma implementação mock da interface UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(domain.User), args.Error(1)
}

// MockTokenService é uma implementação mock da interface TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(userID, username, role string) (string, error) {
	args := m.Called(userID, username, role)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateToken(tokenString string) (*token.CustomClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*token.CustomClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

// TestRegister_Success testa o registro com hashing de senha e role padrão.
func TestRegister_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockToken := new(MockTokenService)
	mockLogger := logger.NewLogger("debug")

	svc := userservice.NewService(mockRepo, mockToken, mockLogger)

	mockRepo.On("Save", mock.AnythingOfType("context.backgroundCtx"), mock.MatchedBy(func(u domain.User) bool {
		// A senha nunca é armazenada em claro, a role padrão é staff e a conta nasce ativa
		return u.PasswordHash != "senha-segura" && u.Role == domain.RoleStaff && u.Status == domain.UserStatusActive
	})).Return(domain.User{ID: uuid.New().String(), Username: "maria", Role: domain.RoleStaff, Status: domain.UserStatusActive}, nil)

	user, err := svc.Register(context.Background(), domain.UserRegistration{
		Username: "maria",
		Password: "senha-segura",
		Name:     "Maria Silva",
	})

	assert.NoError(t, err)
	assert.Equal(t, "maria", user.Username)
	mockRepo.AssertExpectations(t)
}

// TestRegister_Fail_ShortPassword testa a rejeição de senha curta.
func TestRegister_Fail_ShortPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockToken := new(MockTokenService)
	mockLogger := logger.NewLogger("debug")

	svc := userservice.NewService(mockRepo, mockToken, mockLogger)

	_, err := svc.Register(context.Background(), domain.UserRegistration{
		Username: "maria",
		Password: "123",
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestRegister_Fail_UnknownRole testa a rejeição de role desconhecida.
func TestRegister_Fail_UnknownRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockToken := new(MockTokenService)
	mockLogger := logger.NewLogger("debug")

	svc := userservice.NewService(mockRepo, mockToken, mockLogger)

	_, err := svc.Register(context.Background(), domain.UserRegistration{
		Username: "maria",
		Password: "senha-segura",
		Role:     "superuser",
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestLogin_Success testa a autenticação e a emissão do token com a
// identidade do operador.
func TestLogin_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockToken := new(MockTokenService)
	mockLogger := logger.NewLogger("debug")

	svc := userservice.NewService(mockRepo, mockToken, mockLogger)

	hash, _ := bcrypt.GenerateFromPassword([]byte("senha-segura"), bcrypt.DefaultCost)
	userID := uuid.New().String()
	stored := domain.User{
		ID:           userID,
		Username:     "maria",
		PasswordHash: string(hash),
		Role:         domain.RoleStaff,
		Status:       domain.UserStatusActive,
	}

	mockRepo.On("FindByUsername", mock.AnythingOfType("context.backgroundCtx"), "maria").Return(stored, nil)
	mockToken.On("GenerateToken", userID, "maria", "staff").Return("jwt-assinado", nil)

	tokenString, err := svc.Login(context.Background(), "maria", "senha-segura")

	assert.NoError(t, err)
	assert.Equal(t, "jwt-assinado", tokenString)
	mockRepo.AssertExpectations(t)
	mockToken.AssertExpectations(t)
}

// TestLogin_Fail_WrongPassword testa a rejeição de senha incorreta.
func TestLogin_Fail_WrongPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockToken := new(MockTokenService)
	mockLogger := logger.NewLogger("debug")

	svc := userservice.NewService(mockRepo, mockToken, mockLogger)

	hash, _ := bcrypt.GenerateFromPassword([]byte("senha-segura"), bcrypt.DefaultCost)
	stored := domain.User{
		ID:           uuid.New().String(),
		Username:     "maria",
		PasswordHash: string(hash),
		Role:         domain.RoleStaff,
		Status:       domain.UserStatusActive,
	}

	mockRepo.On("FindByUsername", mock.AnythingOfType("context.backgroundCtx"), "maria").Return(stored, nil)

	_, err := svc.Login(context.Background(), "maria", "senha-errada")

	assert.Error(t, err)
	assert.IsType(t, &apperror.UnauthorizedError{}, err)
	mockToken.AssertNotCalled(t, "GenerateToken", mock.Anything, mock.Anything, mock.Anything)
}

// TestLogin_Fail_InactiveUser testa que uma conta desativada não autentica,
// mesmo com a senha correta.
func TestLogin_Fail_InactiveUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockToken := new(MockTokenService)
	mockLogger := logger.NewLogger("debug")

	svc := userservice.NewService(mockRepo, mockToken, mockLogger)

	hash, _ := bcrypt.GenerateFromPassword([]byte("senha-segura"), bcrypt.DefaultCost)
	stored := domain.User{
		ID:           uuid.New().String(),
		Username:     "maria",
		PasswordHash: string(hash),
		Role:         domain.RoleStaff,
		Status:       domain.UserStatusInactive,
	}

	mockRepo.On("FindByUsername", mock.AnythingOfType("context.backgroundCtx"), "maria").Return(stored, nil)

	_, err := svc.Login(context.Background(), "maria", "senha-segura")

	assert.Error(t, err)
	assert.IsType(t, &apperror.UnauthorizedError{}, err)
	assert.Contains(t, err.Error(), "desativado")
	mockToken.AssertNotCalled(t, "GenerateToken", mock.Anything, mock.Anything, mock.Anything)
}

// TestLogin_Fail_UnknownUser testa que usuário inexistente vira Unauthorized,
// sem revelar se o usuário existe.
func TestLogin_Fail_UnknownUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockToken := new(MockTokenService)
	mockLogger := logger.NewLogger("debug")

	svc := userservice.NewService(mockRepo, mockToken, mockLogger)

	mockRepo.On("FindByUsername", mock.AnythingOfType("context.backgroundCtx"), "fantasma").
		Return(domain.User{}, apperror.NewNotFoundError("Usuário fantasma não existe na base de dados."))

	_, err := svc.Login(context.Background(), "fantasma", "qualquer")

	assert.Error(t, err)
	assert.IsType(t, &apperror.UnauthorizedError{}, err)
	assert.NotContains(t, err.Error(), "não existe")
	mockRepo.AssertExpectations(t)
}
