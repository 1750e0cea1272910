package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/marketclient/internal/marketplace"
	"go.uber.org/zap"
)

func (server *Server) handleSupplierCatalog(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.SupplierProducts(server.owner(contextGin)))
}

func (server *Server) handleAddProduct(contextGin *gin.Context) {
	var draft marketplace.ProductDraft
	if !bindPayload(contextGin, &draft) {
		return
	}
	owner := server.owner(contextGin)
	product, err := server.catalog.AddProduct(owner, draft)
	if err != nil {
		abortWithCode(contextGin, http.StatusBadRequest, "unknown_category")
		return
	}
	server.logger.Info("product added",
		zap.String("code", "supplier.product.added"),
		zap.String("product_id", product.ID),
		zap.String("supplier_id", owner.AccountID))
	contextGin.JSON(http.StatusCreated, product)
}

func (server *Server) handleUpdateProduct(contextGin *gin.Context) {
	var draft marketplace.ProductDraft
	if !bindPayload(contextGin, &draft) {
		return
	}
	product, err := server.catalog.UpdateProduct(server.owner(contextGin), contextGin.Param("id"), draft)
	if errors.Is(err, ErrUnknownCategory) {
		abortWithCode(contextGin, http.StatusBadRequest, "unknown_category")
		return
	}
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "product_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, product)
}

func (server *Server) handleDeleteProduct(contextGin *gin.Context) {
	if err := server.catalog.DeleteProduct(server.owner(contextGin), contextGin.Param("id")); err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "product_not_found")
		return
	}
	contextGin.Status(http.StatusNoContent)
}

func (server *Server) handleInventory(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Inventory(server.owner(contextGin)))
}

func (server *Server) handleUpdateInventory(contextGin *gin.Context) {
	var update marketplace.InventoryUpdate
	if !bindPayload(contextGin, &update) {
		return
	}
	item, err := server.catalog.SetStock(server.owner(contextGin), contextGin.Param("id"), update.Stock)
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "product_not_found")
		return
	}
	contextGin.JSON(http.StatusOK, item)
}

func (server *Server) handleDashboard(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Dashboard(server.owner(contextGin)))
}
