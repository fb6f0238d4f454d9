// Package coverkit provides embedded assets for the coverkit binary.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. The CLI writes it to the data directory on first run.
package coverkit

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
