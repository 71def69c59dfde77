// Package config loads the demo binary configuration from environment variables.
//
// Every value has a default suitable for a local run:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
