// Package config handles loading and validating chapa agent configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with CHAPA_* environment variables
//   - Validation of required fields and enumerations
//   - Default values matching the original firmware constants
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.ID)
package config
