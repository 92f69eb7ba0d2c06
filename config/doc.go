// Package config loads ohsmetrics configuration with viper.
//
// Files may be YAML, JSON or TOML. Without an explicit path the file
// "config" is searched in /etc/ohsmetrics, $HOME/.ohsmetrics, the working
// directory and the executable's directory. Every key has a default, so an
// empty file is a valid configuration.
//
//	cache:
//	  default_ttl: 5m
//	  realtime_ttl: 30s
//	  realtime_types: [realtime, dashboard]
//	  sweep_interval: 1m
//	query:
//	  timeout: 10s
//	  max_page_size: 100
//	data:
//	  driver: postgres
//	  source: postgres://survey@localhost/survey
//	events:
//	  driver: redis
//	  redis:
//	    addr: localhost:6379
//	    channel: survey-events
//
// Watch reloads the file on change and hands the new Config to a callback.
package config
