package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Structs

// Env holds deployment-host-specific values that should not live in
// the checked-in TOML config, such as the Postgres store password.
type Env struct {
	StorePassword string
}

// Functions

// LoadEnv looks for a .env file in the current directory and reads in
// all defined values.
func LoadEnv() (*Env, error) {

	if err := godotenv.Load(".env"); err != nil {
		return nil, fmt.Errorf("[config.LoadEnv] failed to read in .env file: %s", err.Error())
	}

	env := &Env{
		StorePassword: os.Getenv("STORE_PASSWORD"),
	}

	return env, nil
}
