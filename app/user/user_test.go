package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/EllieBekrian/cab432/internal/model"
	"github.com/EllieBekrian/cab432/internal/service"
	"github.com/EllieBekrian/cab432/internal/store"
	"github.com/EllieBekrian/cab432/pkg/middleware"
	"github.com/EllieBekrian/cab432/pkg/security"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopCache satisfies the service cache interface with misses/no-ops.
type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, bool) {
	return nil, false
}

func (nopCache) Set(context.Context, string, []byte, time.Duration) {}

func (nopCache) Del(context.Context, string) {}

func accountTestRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	viper.Set("security.jwt_secret", "test-secret")

	s, err := store.NewGorm("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	d := &internal.Deps{
		Store: s,
		Meta:  service.NewMetadata(s, nopCache{}, nil),
		Argon: security.New(),
	}

	r := gin.New()
	r.Use(middleware.NewRequestIDMiddleware())
	r.POST("/users", func(c *gin.Context) { UserRegister(c, d) })
	r.POST("/users/login", func(c *gin.Context) { UserLogin(c, d) })
	return r, s
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterThenLogin(t *testing.T) {
	r, s := accountTestRouter(t)

	w := postJSON(t, r, "/users", `{"username":"alice","password":"hunter2"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// The stored record keeps the hash, login depends on it.
	rec, err := s.GetByKey(context.Background(), "alice", store.UserSort)
	require.NoError(t, err)

	var u model.User
	require.NoError(t, rec.Decode(&u))
	require.NotEmpty(t, u.PasswordHash, "registration must persist the password hash")
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))

	w = postJSON(t, r, "/users/login", `{"username":"alice","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")
	assert.Contains(t, w.Body.String(), "alice")

	w = postJSON(t, r, "/users/login", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r, _ := accountTestRouter(t)

	w := postJSON(t, r, "/users", `{"username":"alice","password":"hunter2"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/users", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	r, _ := accountTestRouter(t)

	w := postJSON(t, r, "/users/login", `{"username":"nobody","password":"hunter2"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := accountTestRouter(t)

	w := postJSON(t, r, "/users", `{"username":"","password":"hunter2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, r, "/users", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
