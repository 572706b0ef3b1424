// Package config loads and validates Domovox Core configuration.
//
// Configuration comes from three layers, each overriding the last:
//
//  1. Hardcoded defaults
//  2. A YAML file (configs/config.yaml by default)
//  3. DOMOVOX_* environment variables (secrets belong here, not in the file)
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Validation runs on every Load; a config that fails validation is never
// returned to the caller.
package config
