package bootstrap

import (
	"github.com/artpar/deepgraph/adapters/logger"
	"github.com/artpar/deepgraph/core/loader"
	"github.com/artpar/deepgraph/core/module"
	"github.com/artpar/deepgraph/core/registry"
)

// Core module names.
const (
	ModuleRoot   = "root"
	ModuleLoader = "loader"
	ModuleLogger = "logger"
	ModuleBoot   = "boot"
)

// CoreModules adds the built-in modules to catalog: the registry, the
// loader, the logger component and the lifecycle controller.
func CoreModules(catalog *module.Catalog) {
	catalog.Provide(ModuleRoot, registry.Build)
	catalog.Provide(ModuleLoader, loader.Build)
	catalog.Provide(ModuleLogger, logger.Build)
	catalog.Provide(ModuleBoot, BuildBoot)
}
