// Package config holds the settings of an inbound tunnel endpoint.
//
// Settings live in viper under the "endpoint." prefix. Defaults are applied
// by InitConfig, which also reads (or creates) $HOME/.go-i2p/config.yaml.
// CurrentEndpointConfig snapshots the current viper state into an
// EndpointConfig and Validate checks it.
package config
