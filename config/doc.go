// Package config loads and validates the SDK configuration.
//
// Configuration comes from an optional YAML file with STELLANOW_* environment
// variables layered on top, both read by cleanenv. Defaults live in the struct
// tags and mirror Default.
//
// # Basic Usage
//
//	cfg, err := config.Load("stellanow.yaml")
//	if err != nil {
//		return err
//	}
//	if err := cfg.Validate(); err != nil {
//		return err // fatal: missing organization, credentials, ...
//	}
//
// # Example File
//
//	organization:
//	  id: acme
//	  project_id: 5c3e9b0a
//	auth:
//	  mode: oidc
//	  authority: https://auth.example.com
//	  username: ingest@acme.io
//	broker:
//	  transport: mqtt
//	  url: ssl://broker.example.com:8883
//	delivery:
//	  batch_size: 200
//
// Secrets such as STELLANOW_PASSWORD are best supplied through the
// environment. Config.String redacts the password.
package config
