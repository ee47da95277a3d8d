package graphql

import (
	_ "embed"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gql "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"sum-admin/internal/audit"
)

//go:embed schema.graphql
var schemaSDL string

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type Handler struct {
	schema *gql.Schema
	log    *zap.Logger
}

// NewHandler 解析 schema；resolver 与 schema 不匹配时 panic（启动即失败）
func NewHandler(svc *audit.Service, l *zap.Logger) *Handler {
	schema := gql.MustParseSchema(schemaSDL, NewResolver(svc),
		gql.MaxDepth(8),
	)
	return &Handler{schema: schema, log: l.Named("graphql")}
}

func (h *Handler) Mount(g *gin.RouterGroup) {
	g.POST("/auditoria", h.Auditoria)
	g.POST("/usuariosByRole", h.UsuariosByRole)
}

// Auditoria 通用 GraphQL 入口
func (h *Handler) Auditoria(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cuerpo de la solicitud inválido: " + err.Error()})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La consulta GraphQL es requerida"})
		return
	}
	h.exec(c, req)
}

// UsuariosByRole 只给 rolId / rolNombre 时走预置查询，否则执行客户端 query
func (h *Handler) UsuariosByRole(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El cuerpo de la solicitud es requerido"})
		return
	}

	vars := map[string]any{}
	var rolID, rolNombre any
	for k, v := range req.Variables {
		switch {
		case v == nil:
		case k == "rolId":
			rolID = v
			vars["idRol"] = v
		case k == "rolNombre":
			rolNombre = v
			vars["nombreRol"] = v
		default:
			vars[k] = v
		}
	}

	switch {
	case req.Query != "":
	case rolID != nil:
		req.Query, req.OperationName = QueryUsuariosPorRol, OpUsuariosPorRol
	case rolNombre != nil:
		req.Query, req.OperationName = QueryUsuariosPorNombreRol, OpUsuariosPorNombreRol
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Se debe proporcionar un ID de rol (rolId) o nombre de rol (rolNombre) en las variables",
		})
		return
	}
	req.Variables = vars
	h.exec(c, req)
}

func (h *Handler) exec(c *gin.Context, req request) {
	resp := h.schema.Exec(c.Request.Context(), req.Query, req.OperationName, normalizeVariables(req.Variables))
	if len(resp.Errors) > 0 {
		h.log.Info("graphql errors",
			zap.String("operation", req.OperationName),
			zap.Int("count", len(resp.Errors)),
			zap.String("first", resp.Errors[0].Message))
	}
	body, err := json.Marshal(resp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al procesar la consulta: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// normalizeVariables schema 里的参数只有 ID 和 String，数字变量统一转成字符串
func normalizeVariables(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if f, ok := v.(float64); ok {
			if f == math.Trunc(f) {
				v = strconv.FormatInt(int64(f), 10)
			} else {
				v = strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
		out[k] = v
	}
	return out
}
