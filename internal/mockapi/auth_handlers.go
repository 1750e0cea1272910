package mockapi

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const tokenTypeBearer = "Bearer"

type loginRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	Role         string `json:"role"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (server *Server) handleLogin(allowedRoles ...string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound loginRequest
		if err := contextGin.ShouldBindJSON(&inbound); err != nil {
			abortWithCode(contextGin, http.StatusBadRequest, "invalid_json")
			return
		}
		account, err := server.accounts.Authenticate(inbound.UserID, inbound.Password)
		if errors.Is(err, ErrAccountDisabled) {
			server.logger.Info("login rejected", zap.String("code", "auth.login.disabled"), zap.String("login", inbound.UserID))
			abortWithCode(contextGin, http.StatusForbidden, "account_disabled")
			return
		}
		if err != nil {
			server.logger.Info("login rejected", zap.String("code", "auth.login.invalid_credentials"), zap.String("login", inbound.UserID))
			abortWithCode(contextGin, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		if !slices.Contains(allowedRoles, account.Role) {
			server.logger.Info("login rejected", zap.String("code", "auth.login.wrong_endpoint"), zap.String("role", account.Role))
			abortWithCode(contextGin, http.StatusForbidden, "wrong_login_endpoint")
			return
		}
		response, err := server.issueSession(contextGin, account, "")
		if err != nil {
			server.logger.Error("issue session failed", zap.String("code", "auth.login.issue"), zap.Error(err))
			abortWithCode(contextGin, http.StatusInternalServerError, "token_issue_failed")
			return
		}
		contextGin.JSON(http.StatusOK, response)
	}
}

func (server *Server) handleRegister(contextGin *gin.Context) {
	var inbound registerRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		abortWithCode(contextGin, http.StatusBadRequest, "invalid_registration")
		return
	}
	account, err := server.accounts.Create("", inbound.Email, inbound.Email, inbound.Name, RoleCustomer, inbound.Password)
	if errors.Is(err, ErrAccountExists) {
		abortWithCode(contextGin, http.StatusConflict, "account_exists")
		return
	}
	if err != nil {
		server.logger.Error("register failed", zap.String("code", "auth.register.create"), zap.Error(err))
		abortWithCode(contextGin, http.StatusInternalServerError, "register_failed")
		return
	}
	response, err := server.issueSession(contextGin, account, "")
	if err != nil {
		server.logger.Error("issue session failed", zap.String("code", "auth.register.issue"), zap.Error(err))
		abortWithCode(contextGin, http.StatusInternalServerError, "token_issue_failed")
		return
	}
	contextGin.JSON(http.StatusCreated, response)
}

// handleRefresh rotates the refresh token: the presented token is revoked and a new pair is issued.
func (server *Server) handleRefresh(contextGin *gin.Context) {
	var inbound refreshRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		abortWithCode(contextGin, http.StatusBadRequest, "missing_refresh_token")
		return
	}
	ctx := contextGin.Request.Context()
	userID, tokenID, _, err := server.refreshTokens.Validate(ctx, inbound.RefreshToken)
	if err != nil {
		server.logger.Info("refresh rejected", zap.String("code", "auth.refresh.invalid"), zap.Error(err))
		abortWithCode(contextGin, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	account, err := server.accounts.Get(userID)
	if err != nil {
		abortWithCode(contextGin, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	if account.Disabled {
		if revokeErr := server.refreshTokens.Revoke(ctx, tokenID); revokeErr != nil {
			server.logger.Warn("revoke failed", zap.String("code", "auth.refresh.revoke_disabled"), zap.Error(revokeErr))
		}
		server.logger.Info("refresh rejected", zap.String("code", "auth.refresh.disabled"), zap.String("user_id", userID))
		abortWithCode(contextGin, http.StatusUnauthorized, "account_disabled")
		return
	}
	response, err := server.issueSession(contextGin, account, tokenID)
	if err != nil {
		server.logger.Error("issue session failed", zap.String("code", "auth.refresh.issue"), zap.Error(err))
		abortWithCode(contextGin, http.StatusInternalServerError, "token_issue_failed")
		return
	}
	if err = server.refreshTokens.Revoke(ctx, tokenID); err != nil {
		server.logger.Error("revoke failed", zap.String("code", "auth.refresh.revoke"), zap.Error(err))
		abortWithCode(contextGin, http.StatusInternalServerError, "token_revoke_failed")
		return
	}
	contextGin.JSON(http.StatusOK, response)
}

// handleLogout revokes the refresh token in the body when one is supplied. It always succeeds.
func (server *Server) handleLogout(contextGin *gin.Context) {
	var inbound refreshRequest
	if err := contextGin.ShouldBindJSON(&inbound); err == nil {
		ctx := contextGin.Request.Context()
		if _, tokenID, _, validateErr := server.refreshTokens.Validate(ctx, inbound.RefreshToken); validateErr == nil {
			if revokeErr := server.refreshTokens.Revoke(ctx, tokenID); revokeErr != nil {
				server.logger.Warn("logout revoke failed", zap.String("code", "auth.logout.revoke"), zap.Error(revokeErr))
			}
		}
	}
	contextGin.Status(http.StatusNoContent)
}

func (server *Server) issueSession(contextGin *gin.Context, account Account, previousTokenID string) (tokenResponse, error) {
	now := server.configuration.Clock.Now()
	accessToken, _, err := MintAccessToken(account, server.configuration.Issuer, server.configuration.SigningKey, now, server.configuration.AccessTokenTTL)
	if err != nil {
		return tokenResponse{}, err
	}
	refreshExpiry := now.Add(server.configuration.RefreshTokenTTL).Unix()
	_, refreshOpaque, err := server.refreshTokens.Issue(contextGin.Request.Context(), account.ID, refreshExpiry, previousTokenID)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    tokenTypeBearer,
		Role:         account.Role,
		ExpiresIn:    int64(server.configuration.AccessTokenTTL.Seconds()),
	}, nil
}
