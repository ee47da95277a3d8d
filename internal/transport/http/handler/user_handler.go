package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sum-admin/internal/domain"
	"sum-admin/internal/service"
	"sum-admin/internal/transport/http/ez"
)

type UserHandler struct {
	Svc *service.UserService
	// Guard 写接口的鉴权中间件，可为 nil
	Guard gin.HandlerFunc
}

type assignIn struct {
	RoleID int64 `json:"idRol"`
}

func (h UserHandler) guard() []gin.HandlerFunc {
	if h.Guard == nil {
		return nil
	}
	return []gin.HandlerFunc{h.Guard}
}

func (h UserHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.User]{
		Method: http.MethodGet, Path: "/usuarios", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.User, error) {
			return h.Svc.ListUsers(c.Request.Context())
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet, Path: "/usuarios/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.Svc.GetUser(c.Request.Context(), id)
		},
	})

	ez.RegisterAction(e, ez.Action[service.CreateUserInput, *domain.User]{
		Method: http.MethodPost, Path: "/usuarios", Binder: ez.BindJSON,
		Status: http.StatusCreated, Message: "Usuario creado exitosamente",
		Handler: func(c *gin.Context, in *service.CreateUserInput) (*domain.User, error) {
			return h.Svc.CreateUser(c.Request.Context(), *in)
		},
	}, h.guard()...)

	ez.RegisterAction(e, ez.Action[domain.UserPatch, *domain.User]{
		Method: http.MethodPut, Path: "/usuarios/:id", Binder: ez.BindJSON,
		Message: "Usuario actualizado exitosamente",
		Handler: func(c *gin.Context, in *domain.UserPatch) (*domain.User, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.Svc.UpdateUser(c.Request.Context(), id, *in)
		},
	}, h.guard()...)

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete, Path: "/usuarios/:id", Binder: ez.BindNone,
		Message: "Usuario eliminado exitosamente",
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := h.Svc.DeleteUser(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"idUsuario": id}, nil
		},
	}, h.guard()...)

	ez.RegisterAction(e, ez.Action[assignIn, gin.H]{
		Method: http.MethodPost, Path: "/usuarios/:id/roles", Binder: ez.BindJSON,
		Message: "Rol asignado exitosamente",
		Handler: func(c *gin.Context, in *assignIn) (gin.H, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			ids, err := h.Svc.AssignRole(c.Request.Context(), id, in.RoleID)
			if err != nil {
				return nil, err
			}
			return gin.H{"idUsuario": id, "roles": ids}, nil
		},
	}, h.guard()...)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Role]{
		Method: http.MethodGet, Path: "/usuarios/:id/roles", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Role, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.Svc.UserRoles(c.Request.Context(), id)
		},
	})
}
