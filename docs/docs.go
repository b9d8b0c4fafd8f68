// Package docs expõe a especificação OpenAPI servida em /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ping": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "pong", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Registra um novo usuário",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Autentica um usuário e retorna um JWT",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/v1/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Lista produtos com filtros e paginação",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Cria um produto",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "SKU duplicado"}
                }
            }
        },
        "/v1/products/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Consulta o log de auditoria do catálogo",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Busca um produto por ID",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Atualiza campos de catálogo (estoque fica de fora)",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Remove um produto (logs de auditoria sobrevivem)",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/inventory/in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Entrada de estoque",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/v1/inventory/out": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Saída de estoque",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Estoque insuficiente"}
                }
            }
        },
        "/v1/inventory/adjust": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Ajuste de estoque para um valor absoluto",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/v1/inventory/batch-in": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Entrada de estoque em lote via planilha .xlsx",
                "responses": {"200": {"description": "Resultado linha a linha"}}
            }
        },
        "/v1/inventory/batch-out": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Saída de estoque em lote via planilha .xlsx",
                "responses": {"200": {"description": "Resultado linha a linha"}}
            }
        },
        "/v1/inventory/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Consulta o log de movimentações de estoque",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Lista pedidos com filtros e paginação",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Cria um pedido (total calculado no servidor)",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/v1/orders/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Estatísticas agregadas de pedidos",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Busca um pedido por ID",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Atualiza um pedido não-terminal",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Pedido em estado terminal"}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Remove um pedido não-terminal",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Pedido em estado terminal"}}
            }
        }
    }
}`

// SwaggerInfo guarda os valores exportados usados no template acima.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "SuperMart API",
	Description:      "API de retaguarda: catálogo, estoque auditado e pedidos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
