package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/marketclient/internal/marketplace"
	"go.uber.org/zap"
)

func (server *Server) handleListProducts(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Products())
}

func (server *Server) handleSearchProducts(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Search(contextGin.Query("q")))
}

func (server *Server) handleCategories(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Categories())
}

func (server *Server) handleGetProduct(contextGin *gin.Context) {
	product, err := server.catalog.Product(contextGin.Param("id"))
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "product_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, product)
}

func (server *Server) handleGetProfile(contextGin *gin.Context) {
	account, err := server.accounts.Get(server.claims(contextGin).GetUserID())
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "account_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, profileOf(account))
}

func (server *Server) handleUpdateProfile(contextGin *gin.Context) {
	var update marketplace.ProfileUpdate
	if !bindPayload(contextGin, &update) {
		return
	}
	account, err := server.accounts.UpdateProfile(server.claims(contextGin).GetUserID(), update.Name, update.Email, update.CurrentPassword, update.NewPassword)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		abortWithCode(contextGin, http.StatusForbidden, "invalid_current_password")
		return
	case err != nil:
		abortWithCode(contextGin, http.StatusNotFound, "account_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, profileOf(account))
}

func (server *Server) handleRecommendations(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Recommendations(recommendationCount))
}

func (server *Server) handleGetCart(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Cart(server.claims(contextGin).GetUserID()))
}

func (server *Server) handleAddToCart(contextGin *gin.Context) {
	line, ok := bindCartLine(contextGin)
	if !ok {
		return
	}
	if line.Quantity < 1 {
		abortWithCode(contextGin, http.StatusBadRequest, "invalid_quantity")
		return
	}
	cart, err := server.catalog.AddToCart(server.claims(contextGin).GetUserID(), line.ProductID, line.Quantity)
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "product_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, cart)
}

func (server *Server) handleUpdateCart(contextGin *gin.Context) {
	line, ok := bindCartLine(contextGin)
	if !ok {
		return
	}
	cart, err := server.catalog.UpdateCart(server.claims(contextGin).GetUserID(), line.ProductID, line.Quantity)
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "cart_item_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, cart)
}

func (server *Server) handleRemoveFromCart(contextGin *gin.Context) {
	line, ok := bindCartLine(contextGin)
	if !ok {
		return
	}
	contextGin.JSON(http.StatusOK, server.catalog.RemoveFromCart(server.claims(contextGin).GetUserID(), line.ProductID))
}

func (server *Server) handleClearCart(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.ClearCart(server.claims(contextGin).GetUserID()))
}

func (server *Server) handleListOrders(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Orders(server.claims(contextGin).GetUserID()))
}

func (server *Server) handleGetOrder(contextGin *gin.Context) {
	order, err := server.catalog.Order(server.claims(contextGin).GetUserID(), contextGin.Param("id"))
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "order_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, order)
}

func (server *Server) handleCreateOrder(contextGin *gin.Context) {
	var checkout marketplace.CheckoutRequest
	if !bindPayload(contextGin, &checkout) {
		return
	}
	order, err := server.catalog.Checkout(server.claims(contextGin).GetUserID())
	switch {
	case errors.Is(err, ErrEmptyCart):
		abortWithCode(contextGin, http.StatusConflict, "empty_cart")
		return
	case errors.Is(err, ErrInsufficientStock):
		abortWithCode(contextGin, http.StatusConflict, "insufficient_stock")
		return
	case err != nil:
		abortWithCode(contextGin, http.StatusNotFound, "product_not_found")
		return
	}
	server.logger.Info("order placed",
		zap.String("code", "orders.created"),
		zap.String("order_id", order.ID),
		zap.Float64("total", order.Total))
	contextGin.JSON(http.StatusCreated, order)
}

func (server *Server) handleCancelOrder(contextGin *gin.Context) {
	order, err := server.catalog.CancelOrder(server.claims(contextGin).GetUserID(), contextGin.Param("id"))
	switch {
	case errors.Is(err, ErrOrderNotCancellable):
		abortWithCode(contextGin, http.StatusConflict, "order_not_cancellable")
		return
	case err != nil:
		abortWithCode(contextGin, http.StatusNotFound, "order_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, order)
}

// bindPayload decodes the JSON body and applies the same validation the client runs before sending.
func bindPayload(contextGin *gin.Context, payload any) bool {
	if err := contextGin.ShouldBindJSON(payload); err != nil {
		abortWithCode(contextGin, http.StatusBadRequest, "invalid_json")
		return false
	}
	if err := marketplace.ValidatePayload(payload); err != nil {
		abortWithCode(contextGin, http.StatusBadRequest, "invalid_input")
		return false
	}
	return true
}

func bindCartLine(contextGin *gin.Context) (marketplace.CartLine, bool) {
	var line marketplace.CartLine
	if err := contextGin.ShouldBindJSON(&line); err != nil || strings.TrimSpace(line.ProductID) == "" {
		abortWithCode(contextGin, http.StatusBadRequest, "invalid_cart_line")
		return marketplace.CartLine{}, false
	}
	return line, true
}

func profileOf(account Account) marketplace.UserProfile {
	return marketplace.UserProfile{ID: account.ID, Name: account.Name, Email: account.Email, Role: account.Role}
}
