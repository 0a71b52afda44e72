package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	providers := NewDomainGroup("providers", "/providers")
	providers.GET("/:code/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+c.Param("code"))
	})
	imports := NewDomainGroup("imports", "/imports")
	imports.POST("/commit", func(c *gin.Context) {
		c.String(http.StatusCreated, "committed")
	})

	r.Register(providers).Register(imports)
	r.Setup()

	w := serve(engine, "GET", "/api/v1/providers/cj/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong cj", w.Body.String())

	w = serve(engine, "POST", "/api/v1/imports/commit")
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusNotFound, serve(engine, "GET", "/providers/cj/ping").Code)
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("test", "/test")
	g.GET("/a", func(c *gin.Context) { c.String(http.StatusOK, "a") }).
		POST("/b", func(c *gin.Context) { c.String(http.StatusOK, "b") }).
		DELETE("/c/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) }).
		Handle(http.MethodPut, "/d", func(c *gin.Context) { c.String(http.StatusOK, "d") })

	g.RegisterRoutes(engine.Group("/api/v1"))

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{"GET", "/api/v1/test/a", http.StatusOK},
		{"POST", "/api/v1/test/b", http.StatusOK},
		{"DELETE", "/api/v1/test/c/9", http.StatusNoContent},
		{"PUT", "/api/v1/test/d", http.StatusOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, serve(engine, tt.method, tt.path).Code, "%s %s", tt.method, tt.path)
	}
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("test", "/test")
	g.Use(func(c *gin.Context) {
		c.Header("X-Test-Middleware", "applied")
		c.Next()
	})
	g.GET("/items", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	g.RegisterRoutes(engine.Group("/api/v1"))

	w := serve(engine, "GET", "/api/v1/test/items")
	assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
}

func TestDomainGroup_SubgroupsAndRoutes(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("imports", "/imports")
	g.POST("/upload", func(c *gin.Context) { c.String(http.StatusOK, "upload") })

	logs := g.Group("logs", "/logs")
	logs.GET("", func(c *gin.Context) { c.String(http.StatusOK, "list") })
	logs.GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

	g.RegisterRoutes(engine.Group("/api/v1"))

	assert.Equal(t, "list", serve(engine, "GET", "/api/v1/imports/logs").Body.String())
	assert.Equal(t, "42", serve(engine, "GET", "/api/v1/imports/logs/42").Body.String())

	assert.Equal(t, []string{
		"POST /imports/upload",
		"GET /imports/logs",
		"GET /imports/logs/:id",
	}, g.Routes())
	assert.Equal(t, "imports", g.Name())
	assert.Equal(t, "/imports", g.Prefix())
}
