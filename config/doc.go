// Package config loads, validates and persists the gateway configuration.
//
// A configuration selects exactly one acquisition mode:
//
//	{"mode": {"mode": "tcp", "host": "127.0.0.1", "port": 3601}}      line protocol over TCP
//	{"mode": {"mode": "usb", "port_path": "/dev/ttyUSB0"}}            line protocol over a serial port
//	{"mode": {"mode": "tcpserver", "port": 3601}}                     JSON-line listener
//
// plus the HTTP surface, the hub capacity, decoder tuning and the optional
// NATS bridge.
//
// # Loading
//
// Loader builds a Config in layers:
//
//  1. built-in defaults (Default)
//  2. each file layer in order; .yaml and .yml files are read as YAML,
//     anything else as JSON; nested objects are merged key by key
//  3. environment overrides: RRC_MODE, RRC_HOST, RRC_PORT, RRC_PORT_PATH,
//     RRC_HTTP_PORT, RRC_NATS_URL
//  4. validation, when enabled: the embedded JSON schema first, then Validate
//
// LoadOrCreate is what the binary uses: a missing file is created with the
// defaults, while a file that exists but cannot be parsed is an error and is
// never overwritten.
//
// # Runtime access
//
// SafeConfig guards a Config for concurrent readers and a single updater,
// used by the /api/config endpoint. Changes are persisted to the file and
// take effect on the next start.
package config
