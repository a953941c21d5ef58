package core

import (
	"github.com/crmarques/prismafmt/config"
)

type BootstrapConfig struct {
	ConfigPath string
}

type PrismaFmtContext struct {
	Config  config.Config
	Configs config.Service
}
