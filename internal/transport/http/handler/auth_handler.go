package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sum-admin/internal/service"
	"sum-admin/internal/transport/http/ez"
)

type AuthHandler struct {
	Svc *service.UserService
}

type loginIn struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Priority 登录最先挂载
func (AuthHandler) Priority() int { return 10 }

func (h AuthHandler) MountAPI(g *gin.RouterGroup) {
	ez.RegisterAction(ez.New(g), ez.Action[loginIn, *service.LoginResult]{
		Method: http.MethodPost, Path: "/auth/login", Binder: ez.BindJSON,
		Message: "Login exitoso",
		Handler: func(c *gin.Context, in *loginIn) (*service.LoginResult, error) {
			return h.Svc.Login(c.Request.Context(), in.Username, in.Password)
		},
	})
}
