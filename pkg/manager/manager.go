package manager

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"transcode-orchestrator/pkg/config"
	"transcode-orchestrator/pkg/logger"
)

// Resource 由资源插件创建，随进程生命周期打开和关闭
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin 资源插件，通过init注册
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Component 后台组件（恢复扫描、清理任务等）
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// ComponentPlugin 组件插件，依赖注入后创建组件
type ComponentPlugin interface {
	Name() string
	MustCreateComponent(deps *Dependencies) Component
}

// RouteRegistrar 路由注册函数
type RouteRegistrar func(engine *gin.Engine, deps *Dependencies)

// Dependencies 依赖注入容器
type Dependencies struct {
	Config *config.Config
	// OrchestratorApp 由app包在初始化后填充，类型由使用方断言
	OrchestratorApp interface{}
}

type registry struct {
	mu              sync.Mutex
	resourcePlugins []ResourcePlugin
	resources       []Resource
	componentAdders []ComponentPlugin
	components      []Component
	routeRegistrars []RouteRegistrar
	cancel          context.CancelFunc
}

var defaultRegistry = &registry{}

// RegisterResourcePlugin 注册资源插件
func RegisterResourcePlugin(p ResourcePlugin) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.resourcePlugins = append(defaultRegistry.resourcePlugins, p)
}

// RegisterComponentPlugin 注册组件插件
func RegisterComponentPlugin(p ComponentPlugin) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.componentAdders = append(defaultRegistry.componentAdders, p)
}

// RegisterRoutes 注册路由函数
func RegisterRoutes(r RouteRegistrar) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.routeRegistrars = append(defaultRegistry.routeRegistrars, r)
}

// MustInitResources 按注册顺序打开所有资源
func MustInitResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.resourcePlugins {
		logger.Infof("Opening resource name=%s", p.Name())
		res := p.MustCreateResource()
		res.MustOpen()
		defaultRegistry.resources = append(defaultRegistry.resources, res)
	}
}

// CloseResources 逆序关闭所有资源
func CloseResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.resources) - 1; i >= 0; i-- {
		defaultRegistry.resources[i].Close()
	}
	defaultRegistry.resources = nil
}

// MustInitComponents 创建并启动所有组件
func MustInitComponents(deps *Dependencies) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	defaultRegistry.cancel = cancel
	for _, p := range defaultRegistry.componentAdders {
		c := p.MustCreateComponent(deps)
		if c == nil {
			continue
		}
		logger.Infof("Starting component name=%s", c.Name())
		if err := c.Start(ctx); err != nil {
			panic("failed to start component " + c.Name() + ": " + err.Error())
		}
		defaultRegistry.components = append(defaultRegistry.components, c)
	}
}

// RegisterAllRoutes 执行所有路由注册函数
func RegisterAllRoutes(engine *gin.Engine, deps *Dependencies) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, r := range defaultRegistry.routeRegistrars {
		r(engine, deps)
	}
}

// Shutdown 停止所有组件
func Shutdown() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if defaultRegistry.cancel != nil {
		defaultRegistry.cancel()
		defaultRegistry.cancel = nil
	}
	for i := len(defaultRegistry.components) - 1; i >= 0; i-- {
		_ = defaultRegistry.components[i].Stop()
	}
	defaultRegistry.components = nil
}
