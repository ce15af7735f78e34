// Package user contains the account endpoints. Registration and login
// are thin collaborators of the upload flow, the core only ever sees
// the resulting (username, role) identity.
package user

import (
	"errors"
	"net/http"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/EllieBekrian/cab432/internal/model"
	"github.com/EllieBekrian/cab432/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBind(&data); err != nil || data.Username == "" || data.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Username and password are required",
			"requestID": requestID,
		})
		return
	}

	_, err := d.Store.GetByKey(c.Request.Context(), data.Username, store.UserSort)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "This username is already registered. Please login or pick a different one",
			"requestID": requestID,
		})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if user is registered", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	hash, err := d.Argon.GenerateFromPassword(data.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to hash password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	u := model.User{
		Username:     data.Username,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}

	if err := d.Meta.SaveUser(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"username": u.Username,
	})
}
