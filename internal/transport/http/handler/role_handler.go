package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sum-admin/internal/domain"
	"sum-admin/internal/service"
	"sum-admin/internal/transport/http/ez"
)

type RoleHandler struct {
	Svc   *service.RoleService
	Guard gin.HandlerFunc
}

func (h RoleHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)
	var guard []gin.HandlerFunc
	if h.Guard != nil {
		guard = append(guard, h.Guard)
	}

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Role]{
		Method: http.MethodGet, Path: "/roles", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Role, error) {
			return h.Svc.ListRoles(c.Request.Context())
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.Role]{
		Method: http.MethodGet, Path: "/roles/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Role, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.Svc.GetRole(c.Request.Context(), id)
		},
	})

	ez.RegisterAction(e, ez.Action[service.CreateRoleInput, *domain.Role]{
		Method: http.MethodPost, Path: "/roles", Binder: ez.BindJSON,
		Status: http.StatusCreated, Message: "Rol creado exitosamente",
		Handler: func(c *gin.Context, in *service.CreateRoleInput) (*domain.Role, error) {
			return h.Svc.CreateRole(c.Request.Context(), *in)
		},
	}, guard...)

	ez.RegisterAction(e, ez.Action[domain.RolePatch, *domain.Role]{
		Method: http.MethodPut, Path: "/roles/:id", Binder: ez.BindJSON,
		Message: "Rol actualizado exitosamente",
		Handler: func(c *gin.Context, in *domain.RolePatch) (*domain.Role, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.Svc.UpdateRole(c.Request.Context(), id, *in)
		},
	}, guard...)

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete, Path: "/roles/:id", Binder: ez.BindNone,
		Message: "Rol eliminado exitosamente",
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := h.Svc.DeleteRole(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"idRol": id}, nil
		},
	}, guard...)

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet, Path: "/roles/:id/usuarios", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			users, err := h.Svc.RoleUsers(c.Request.Context(), id)
			if err != nil {
				return nil, err
			}
			return gin.H{"idRol": id, "usuarios": users}, nil
		},
	})
}
