package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/marketclient/internal/marketplace"
	"go.uber.org/zap"
)

func (server *Server) handleListSuppliers(contextGin *gin.Context) {
	accounts := server.accounts.ListByRole(RoleSupplier)
	suppliers := make([]marketplace.SupplierAccount, 0, len(accounts))
	for _, account := range accounts {
		suppliers = append(suppliers, supplierAccountOf(account))
	}
	contextGin.JSON(http.StatusOK, suppliers)
}

func (server *Server) handleOnboardSupplier(contextGin *gin.Context) {
	var onboarding marketplace.SupplierOnboarding
	if !bindPayload(contextGin, &onboarding) {
		return
	}
	account, initialPassword, err := server.accounts.OnboardSupplier(onboarding.Name, onboarding.Email)
	if errors.Is(err, ErrAccountExists) {
		abortWithCode(contextGin, http.StatusConflict, "account_exists")
		return
	}
	if err != nil {
		server.logger.Error("onboard supplier failed", zap.String("code", "admin.supplier.onboard"), zap.Error(err))
		abortWithCode(contextGin, http.StatusInternalServerError, "onboard_failed")
		return
	}
	server.logger.Info("supplier onboarded",
		zap.String("code", "admin.supplier.onboarded"),
		zap.String("supplier_id", account.ID),
		zap.String("contact_person", onboarding.ContactPerson))
	supplier := supplierAccountOf(account)
	supplier.InitialPassword = initialPassword
	contextGin.JSON(http.StatusCreated, supplier)
}

func (server *Server) handleSetSupplierStatus(contextGin *gin.Context) {
	var status marketplace.SupplierStatus
	if !bindPayload(contextGin, &status) {
		return
	}
	account, err := server.accounts.SetDisabled(contextGin.Param("id"), RoleSupplier, !status.Enabled)
	if err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "supplier_not_found")
		return
	}
	server.logger.Info("supplier status changed",
		zap.String("code", "admin.supplier.status"),
		zap.String("supplier_id", account.ID),
		zap.Bool("enabled", status.Enabled))
	contextGin.JSON(http.StatusOK, supplierAccountOf(account))
}

func (server *Server) handleAdminCategories(contextGin *gin.Context) {
	contextGin.JSON(http.StatusOK, server.catalog.Categories())
}

func (server *Server) handleAddCategory(contextGin *gin.Context) {
	var draft marketplace.CategoryDraft
	if !bindPayload(contextGin, &draft) {
		return
	}
	category, err := server.catalog.AddCategory(draft.Name)
	switch {
	case errors.Is(err, ErrCategoryExists):
		abortWithCode(contextGin, http.StatusConflict, "category_exists")
		return
	case err != nil:
		abortWithCode(contextGin, http.StatusBadRequest, "invalid_category")
		return
	}
	contextGin.JSON(http.StatusCreated, category)
}

func (server *Server) handleDeleteCategory(contextGin *gin.Context) {
	if err := server.catalog.DeleteCategory(contextGin.Param("name")); err != nil {
		abortWithCode(contextGin, http.StatusNotFound, "category_not_found")
		return
	}
	contextGin.Status(http.StatusNoContent)
}

func supplierAccountOf(account Account) marketplace.SupplierAccount {
	return marketplace.SupplierAccount{
		ID:      account.ID,
		Name:    account.Name,
		Email:   account.Email,
		Enabled: !account.Disabled,
	}
}
