package models

import (
	"sync"

	"github.com/moyoez/gcomserver-go/types"
)

var (
	runtimeConfigMu sync.RWMutex
	runtimeConfig   types.AppConfig
)

// SetRuntimeConfig records the effective configuration for the status API.
func SetRuntimeConfig(cfg types.AppConfig) {
	runtimeConfigMu.Lock()
	defer runtimeConfigMu.Unlock()
	runtimeConfig = cfg
}

func GetRuntimeConfig() types.AppConfig {
	runtimeConfigMu.RLock()
	defer runtimeConfigMu.RUnlock()
	return runtimeConfig
}
