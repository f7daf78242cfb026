//go:build js && wasm

package env

import "github.com/syumai/workers/cloudflare"

// Get looks up a Worker binding (vars and secrets from wrangler.toml).
func Get(name string) (string, bool) {
	v := cloudflare.Getenv(name)
	return v, v != ""
}
