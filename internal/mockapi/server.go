package mockapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/marketclient/pkg/apiclient"
	"github.com/tyemirov/marketclient/pkg/sessionvalidator"
	"go.uber.org/zap"
)

const recommendationCount = 3

// Dependencies are the stores behind the fake marketplace.
type Dependencies struct {
	Accounts      *AccountStore
	Catalog       *Catalog
	RefreshTokens RefreshTokenStore
	Logger        *zap.Logger
}

// Server serves the marketplace API: auth with rotating refresh tokens,
// the public catalogue, customer cart and orders, the supplier portal, and
// admin supplier and category management.
type Server struct {
	configuration ServerConfig
	accounts      *AccountStore
	catalog       *Catalog
	refreshTokens RefreshTokenStore
	validator     *sessionvalidator.Validator
	logger        *zap.Logger
}

// NewServer validates the configuration and builds the bearer validator.
func NewServer(configuration ServerConfig, dependencies Dependencies) (*Server, error) {
	normalized, err := configuration.normalized()
	if err != nil {
		return nil, err
	}
	if dependencies.Accounts == nil || dependencies.Catalog == nil || dependencies.RefreshTokens == nil {
		return nil, fmt.Errorf("mockapi.new_server: %w", errMissingDependency)
	}
	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: normalized.SigningKey,
		Issuer:     normalized.Issuer,
		Clock:      normalized.Clock,
	})
	if err != nil {
		return nil, err
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		configuration: normalized,
		accounts:      dependencies.Accounts,
		catalog:       dependencies.Catalog,
		refreshTokens: dependencies.RefreshTokens,
		validator:     validator,
		logger:        logger,
	}, nil
}

// NewDemoDependencies seeds one account per role and the demo catalogue,
// with refresh tokens kept in memory.
func NewDemoDependencies(configuration ServerConfig, demoPassword string, passwordCost int, logger *zap.Logger) (Dependencies, error) {
	normalized, err := configuration.normalized()
	if err != nil {
		return Dependencies{}, err
	}
	accounts := NewAccountStore(passwordCost)
	if err = SeedDemoAccounts(accounts, demoPassword); err != nil {
		return Dependencies{}, err
	}
	catalog := NewCatalog(normalized.Clock)
	SeedDemoCatalog(catalog)
	return Dependencies{
		Accounts:      accounts,
		Catalog:       catalog,
		RefreshTokens: NewMemoryRefreshTokenStore(normalized.Clock),
		Logger:        logger,
	}, nil
}

// NewRouter builds a gin engine with recovery, request logging, optional CORS,
// and the API mounted under /api.
func NewRouter(server *Server) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ZapLoggerMiddleware(server.logger))
	if len(server.configuration.AllowedOrigins) > 0 {
		corsMiddleware, err := ConfigureCORS(server.logger, server.configuration.AllowedOrigins)
		if err != nil {
			return nil, err
		}
		router.Use(corsMiddleware)
	}
	router.GET("/healthz", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.Mount(router.Group("/api"))
	return router, nil
}

// Mount registers every endpoint on the router.
func (server *Server) Mount(router gin.IRouter) {
	router.POST(apiclient.PathAuthLogin, server.handleLogin(RoleCustomer, RoleAdmin))
	router.POST(apiclient.PathSupplierLogin, server.handleLogin(RoleSupplier))
	router.POST(apiclient.PathAuthRegister, server.handleRegister)
	router.POST(apiclient.PathAuthRefresh, server.handleRefresh)
	router.POST(apiclient.PathAuthLogout, server.handleLogout)

	router.GET(apiclient.PathProducts, server.handleListProducts)
	router.GET(apiclient.PathProductSearch, server.handleSearchProducts)
	router.GET(apiclient.PathProductCategories, server.handleCategories)
	router.GET(apiclient.PathProducts+"/:id", server.handleGetProduct)

	customer := router.Group("")
	customer.Use(server.RequireBearer())
	customer.GET(apiclient.PathUserProfile, server.handleGetProfile)
	customer.PUT(apiclient.PathUserProfile, server.handleUpdateProfile)
	customer.GET(apiclient.PathUserRecommendations, server.handleRecommendations)
	customer.GET(apiclient.PathCart, server.handleGetCart)
	customer.POST(apiclient.PathCartAdd, server.handleAddToCart)
	customer.PUT(apiclient.PathCartUpdate, server.handleUpdateCart)
	customer.POST(apiclient.PathCartRemove, server.handleRemoveFromCart)
	customer.POST(apiclient.PathCartClear, server.handleClearCart)
	customer.GET(apiclient.PathOrders, server.handleListOrders)
	customer.POST(apiclient.PathOrders, server.handleCreateOrder)
	customer.GET(apiclient.PathOrders+"/:id", server.handleGetOrder)
	customer.POST(apiclient.PathOrders+"/:id/cancel", server.handleCancelOrder)

	supplier := router.Group("")
	supplier.Use(server.RequireBearer(), sessionvalidator.RequireRoles(sessionvalidator.DefaultContextKey, RoleSupplier, RoleAdmin))
	supplier.GET(apiclient.PathSupplierCatalog, server.handleSupplierCatalog)
	supplier.POST(apiclient.PathSupplierAddProduct, server.handleAddProduct)
	supplier.PUT(apiclient.PathSupplierCatalog+"/:id", server.handleUpdateProduct)
	supplier.DELETE(apiclient.PathSupplierCatalog+"/:id", server.handleDeleteProduct)
	supplier.GET(apiclient.PathSupplierInventory, server.handleInventory)
	supplier.PATCH(apiclient.PathSupplierInventory+"/:id", server.handleUpdateInventory)
	supplier.GET(apiclient.PathSupplierDashboard, server.handleDashboard)

	admin := router.Group("")
	admin.Use(server.RequireBearer(), sessionvalidator.RequireRoles(sessionvalidator.DefaultContextKey, RoleAdmin))
	admin.GET(apiclient.PathAdminSuppliers, server.handleListSuppliers)
	admin.POST(apiclient.PathAdminSuppliers, server.handleOnboardSupplier)
	admin.PATCH(apiclient.PathAdminSuppliers+"/:id", server.handleSetSupplierStatus)
	admin.GET(apiclient.PathAdminCategories, server.handleAdminCategories)
	admin.POST(apiclient.PathAdminCategories, server.handleAddCategory)
	admin.DELETE(apiclient.PathAdminCategories+"/:name", server.handleDeleteCategory)
}

// RequireBearer validates the Authorization header and stores the claims on the context.
func (server *Server) RequireBearer() gin.HandlerFunc {
	return server.validator.GinMiddleware(sessionvalidator.DefaultContextKey)
}

func (server *Server) claims(contextGin *gin.Context) *sessionvalidator.Claims {
	claims, _ := sessionvalidator.ClaimsFromContext(contextGin, sessionvalidator.DefaultContextKey)
	return claims
}

func (server *Server) owner(contextGin *gin.Context) Owner {
	claims := server.claims(contextGin)
	return Owner{AccountID: claims.GetUserID(), Name: claims.UserName, Admin: claims.GetRole() == RoleAdmin}
}

func abortWithCode(contextGin *gin.Context, status int, code string) {
	contextGin.AbortWithStatusJSON(status, gin.H{"error": code})
}
