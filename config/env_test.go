package config_test

import (
	"testing"

	"github.com/driftline/crdt/config"
)

// TestLoadEnv executes a black-box test on the implemented
// functionality to load a .env file.
func TestLoadEnv(t *testing.T) {

	env, err := config.LoadEnv()
	if err != nil {
		t.Fatalf("[config.TestLoadEnv] unexpected error: %v", err)
	}

	if env.StorePassword != "works" {
		t.Fatalf("[config.TestLoadEnv] expected 'works' but received '%s'\n", env.StorePassword)
	}
}
