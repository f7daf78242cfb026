//go:build !js || !wasm

package env

import "os"

// Get looks up a setting from the process environment.
func Get(name string) (string, bool) {
	return os.LookupEnv(name)
}
