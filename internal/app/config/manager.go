package config

import "fmt"

type ConfigManager struct {
	loader    *Loader
	appConfig *AppConfig
}

func NewConfigManager(env, configPath string) *ConfigManager {
	return &ConfigManager{loader: NewLoader(env, configPath)}
}

func (cm *ConfigManager) GetConfig() *AppConfig {
	return cm.appConfig
}

func (cm *ConfigManager) LoadConfig() error {
	cfg, err := cm.loader.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Controller.Validate(); err != nil {
		return fmt.Errorf("controller config invalid: %w", err)
	}
	cm.appConfig = cfg
	return nil
}
