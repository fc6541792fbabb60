package serve

import (
	"fmt"

	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

// validateServeArgs fills unset options from cfg and checks them.
func validateServeArgs(options *RunOptionsServe, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is not loaded")
	}
	options.Host = config.SetThen(options.Host, cfg.Server.Host)
	options.Port = config.SetThen(options.Port, cfg.Server.Port)

	if options.Port < 1 || options.Port > 65535 {
		return fmt.Errorf("the 'port' flag must be between 1 and 65535, got %d", options.Port)
	}
	if options.ShutdownTimeout <= 0 {
		return fmt.Errorf("the 'shutdown-timeout' flag must be positive")
	}
	return nil
}
