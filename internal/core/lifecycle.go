package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that take a section of the
// configuration file. Configure receives the raw node stored under the
// module ID and runs before Provision.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need the AppContext: this is
// where a module resolves the services it depends on (the engine, the
// bridge, the store) and registers its own.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator checks a provisioned module. Validate must not change state.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules with background work: the poll loop,
// client logins, listeners. Start runs once every module is provisioned.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that hold resources. Stop runs in
// reverse load order, so a plugin stops before the session it uses and the
// bridge stops before its engine.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader is implemented by modules that accept a new configuration
// without restarting. ctx is scoped to the module; see AppContext.ModuleConfig.
type Reloader interface {
	Reload(ctx *AppContext) error
}
