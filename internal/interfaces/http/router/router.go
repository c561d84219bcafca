// Package router declares the HTTP route table of the billing API and mounts
// it under /api/<version>.
package router

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on a gin group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

// WithAPIVersion overrides the "v1" path segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a registrar; nothing is mounted until Setup.
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

func (r *Router) Setup() {
	api := r.engine.Group(path.Join("/api", r.apiVersion))
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// Route is one method and path pair, used to inspect a route table
type Route struct {
	Method string
	Path   string
}

type endpoint struct {
	Route
	handlers []gin.HandlerFunc
}

// DomainGroup is a declarative route table for one area of the API. It can
// be listed with Routes before being mounted.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	endpoints  []endpoint
	children   []*DomainGroup
}

func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

func (g *DomainGroup) Name() string   { return g.name }
func (g *DomainGroup) Prefix() string { return g.prefix }

// Use attaches middleware to every route of the group and its subgroups
func (g *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, mw...)
	return g
}

func (g *DomainGroup) add(method, p string, handlers []gin.HandlerFunc) *DomainGroup {
	g.endpoints = append(g.endpoints, endpoint{Route: Route{Method: method, Path: p}, handlers: handlers})
	return g
}

func (g *DomainGroup) GET(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodGet, p, h)
}

func (g *DomainGroup) POST(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPost, p, h)
}

func (g *DomainGroup) PUT(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPut, p, h)
}

func (g *DomainGroup) DELETE(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodDelete, p, h)
}

// Group returns a new subgroup nested under g
func (g *DomainGroup) Group(name, prefix string) *DomainGroup {
	child := NewDomainGroup(name, prefix)
	g.children = append(g.children, child)
	return child
}

func (g *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	mounted := rg.Group(g.prefix, g.middleware...)
	for _, e := range g.endpoints {
		mounted.Handle(e.Method, e.Path, e.handlers...)
	}
	for _, child := range g.children {
		child.RegisterRoutes(mounted)
	}
}

// Routes lists the group's endpoints with paths relative to its parent.
func (g *DomainGroup) Routes() []Route {
	var out []Route
	for _, e := range g.endpoints {
		out = append(out, Route{Method: e.Method, Path: joinPath(g.prefix, e.Path)})
	}
	for _, child := range g.children {
		for _, r := range child.Routes() {
			out = append(out, Route{Method: r.Method, Path: joinPath(g.prefix, r.Path)})
		}
	}
	return out
}

// joinPath joins like gin does, keeping a trailing slash
func joinPath(prefix, rel string) string {
	if rel == "" {
		return prefix
	}
	joined := path.Join(prefix, rel)
	if strings.HasSuffix(rel, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
