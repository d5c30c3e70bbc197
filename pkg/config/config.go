package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

var (
	mu       sync.Mutex
	envFile  string
	exported = map[string]bool{}
)

// SetEnvFile selects the dotenv file read by later New calls. An empty
// path restores the default of an optional ".env" in the working directory.
func SetEnvFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	envFile = strings.TrimSpace(path)
}

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New loads the selected env file into the process environment once, then
// decodes prefixed variables into T. Variables already set in the
// environment win over the file.
func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func loadEnvFile() error {
	mu.Lock()
	defer mu.Unlock()

	path, explicit := envFile, envFile != ""
	if !explicit {
		path = defaultEnvFile
	}
	if exported[path] {
		return nil
	}

	if err := exportEnvironmentIfExists(path, explicit); err != nil {
		if explicit {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return fmt.Errorf("failed to load default env file: %w", err)
	}
	exported[path] = true
	return nil
}

func exportEnvironmentIfExists(path string, required bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return exportEnvironment(path)
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
