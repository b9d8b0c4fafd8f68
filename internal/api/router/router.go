package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"supermart/internal/api/inventory"
	"supermart/internal/api/order"
	"supermart/internal/api/product"
	"supermart/internal/api/user"
	"supermart/internal/domain"
	"supermart/internal/pkg/middleware"
)

// Handlers agrupa tudo que o roteador precisa receber por injeção de dependências.
type Handlers struct {
	Product   *product.Handler
	Inventory *inventory.Handler
	Order     *order.Handler
	User      *user.Handler
	TokenSvc  middleware.TokenService
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(h Handlers) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	// Em projetos maiores, pode-se usar um mux de terceiros (e.g., gorilla/mux, chi)
	mux := http.NewServeMux()

	// Middleware de autenticação compartilhado por todas as rotas protegidas
	auth := middleware.NewAuthMiddleware(h.TokenSvc)

	// Remoções de produto e pedido são restritas a admin e manager
	managerOnly := middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleManager)

	// --- 1. Rotas de Health Check e Documentação ---
	mux.HandleFunc("/ping", PingHandler)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// --- 2. Rotas de Autenticação (públicas) ---
	mux.HandleFunc("/v1/auth/register", h.User.RegisterHandler)
	mux.HandleFunc("/v1/auth/login", h.User.LoginHandler)

	// --- 3. Rotas do Módulo de Produtos ---
	// GET lista / POST cria
	mux.HandleFunc("/v1/products", auth(h.Product.CollectionHandler))

	// GET /v1/products/logs precisa ser registrado ANTES do sufixo /{id}
	// (ServeMux casa o prefixo mais longo primeiro, então a rota exata vence)
	mux.HandleFunc("/v1/products/logs", auth(h.Product.ListLogsHandler))

	// GET / PUT / DELETE por ID. O DELETE é checado dentro do despacho por método,
	// então a restrição de role fica no handler de item inteiro para DELETE.
	mux.HandleFunc("/v1/products/", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			managerOnly(h.Product.ItemHandler)(w, r)
			return
		}
		h.Product.ItemHandler(w, r)
	}))

	// --- 4. Rotas do Módulo de Inventário ---
	mux.HandleFunc("/v1/inventory/in", auth(h.Inventory.StockInHandler))
	mux.HandleFunc("/v1/inventory/out", auth(h.Inventory.StockOutHandler))
	mux.HandleFunc("/v1/inventory/adjust", auth(h.Inventory.StockAdjustHandler))
	mux.HandleFunc("/v1/inventory/batch-in", auth(h.Inventory.BatchInHandler))
	mux.HandleFunc("/v1/inventory/batch-out", auth(h.Inventory.BatchOutHandler))
	mux.HandleFunc("/v1/inventory/logs", auth(h.Inventory.ListLogsHandler))

	// --- 5. Rotas do Módulo de Pedidos ---
	mux.HandleFunc("/v1/orders", auth(h.Order.CollectionHandler))
	mux.HandleFunc("/v1/orders/stats", auth(h.Order.StatsHandler))
	mux.HandleFunc("/v1/orders/", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			managerOnly(h.Order.ItemHandler)(w, r)
			return
		}
		h.Order.ItemHandler(w, r)
	}))

	return mux
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
