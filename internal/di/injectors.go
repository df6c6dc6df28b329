//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
)

var agentSet = wire.NewSet(
	ProvideSettingsStore,
	ProvideSettings,
	ProvideLogger,
	ProvidePolicy,
	ProvideController,
	ProvideLauncher,
	ProvideSnapshots,
	ProvideOpenStore,
	ProvideRegistry,
	ProvideOrchestrator,
	wire.Struct(new(Agent), "*"),
)

func InitAgent(opts Options) (*Agent, func(), error) {

	wire.Build(agentSet)

	return nil, nil, nil
}

func InitDaemon(opts Options) (*Daemon, func(), error) {

	wire.Build(
		agentSet,
		ProvideBackend,
		ProvideCachedAccounts,
		ProvideTrayManager,
		ProvideWatcher,
		ProvideAPIServer,
		wire.Struct(new(Daemon), "*"),
	)

	return nil, nil, nil
}
