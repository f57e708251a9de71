package bootstrap

import "github.com/kbukum/ssekit/config"

// Config is what NewApp needs from an application's configuration. A
// struct embedding config.ServiceConfig by value gets GetServiceConfig
// for free and only adds its own sections:
//
//	type ServeConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Server server.Config `yaml:"server" mapstructure:"server"`
//	    SSE    sse.Config    `yaml:"sse" mapstructure:"sse"`
//	}
//
// ApplyDefaults and Validate must cover those sections too; NewApp calls
// both before it builds the logger.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
