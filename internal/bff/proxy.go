package bff

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mdw "sum-admin/internal/transport/http/middleware"
)

const (
	errGraphQL = "Error al procesar la consulta GraphQL: "
	errREST    = "Error al contactar el servicio: "
)

// 转发给上游的请求头
var forwardHeaders = []string{"Authorization", mdw.KeyRequestID, "Content-Type", "Accept"}

type Config struct {
	APIBaseURL        string
	AuditoriaURL      string
	UsuariosByRoleURL string
	Timeout           time.Duration
}

type Proxy struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func New(cfg Config, client *http.Client, l *zap.Logger) *Proxy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &Proxy{cfg: cfg, client: client, log: l.Named("bff")}
}

func (p *Proxy) Mount(g *gin.RouterGroup) {
	api := g.Group("/api")
	api.POST("/auditoria", p.graphQL(p.cfg.AuditoriaURL))
	api.POST("/usuariosByRole", p.graphQL(p.cfg.UsuariosByRoleURL))

	rest := p.rest()
	for _, prefix := range []string{"/usuarios", "/roles"} {
		api.Any(prefix, rest)
		api.Any(prefix+"/*rest", rest)
	}
}

// graphQL 原样转发请求体，原样返回上游状态码和 JSON
func (p *Proxy) graphQL(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cuerpo de la solicitud inválido"})
			return
		}
		p.forward(c, http.MethodPost, target, body, errGraphQL)
	}
}

// rest 转发到领域 API：方法、路径、query、body 都保持不变
func (p *Proxy) rest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			b, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cuerpo de la solicitud inválido"})
				return
			}
			body = b
		}
		target := p.cfg.APIBaseURL + strings.TrimPrefix(c.Request.URL.Path, "/api")
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		p.forward(c, c.Request.Method, target, body, errREST)
	}
}

func (p *Proxy) forward(c *gin.Context, method, target string, body []byte, errPrefix string) {
	if _, err := url.ParseRequestURI(target); err != nil {
		p.fail(c, target, errPrefix, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), p.cfg.Timeout)
	defer cancel()

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		p.fail(c, target, errPrefix, err)
		return
	}
	for _, h := range forwardHeaders {
		if v := c.GetHeader(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if req.Header.Get("Content-Type") == "" && len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := p.client.Do(req)
	if err != nil {
		p.fail(c, target, errPrefix, err)
		return
	}
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		p.fail(c, target, errPrefix, err)
		return
	}
	ct := res.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	c.Data(res.StatusCode, ct, out)
}

func (p *Proxy) fail(c *gin.Context, target, prefix string, err error) {
	p.log.Warn("upstream failed",
		zap.String("target", target),
		zap.String("rid", mdw.RequestIDFrom(c)),
		zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": prefix + err.Error()})
}
