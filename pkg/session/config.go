package session

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config exposes the settings the session store and remote client need.
type Config interface {
	BasePath() string
	ServerURL() string
	LoginURL() string
}

// LoadConfig reads .perch config (yaml implicit) from the current directory
// or PERCH_CONFIG_PATH, with PERCH_* environment overrides.
func LoadConfig() (Config, error) {
	viper.SetDefault("path", "~/.perch.db")
	viper.SetDefault("server", "https://app.perch.dev")
	viper.SetConfigName(".perch")
	viper.SetEnvPrefix("PERCH")
	viper.AutomaticEnv()

	if override := os.Getenv("PERCH_CONFIG_PATH"); override != "" {
		viper.AddConfigPath(override)
	}
	viper.AddConfigPath("./")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("session: read config: %w", err)
		}
	}

	path, err := homedir.Expand(viper.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("session: expand path: %w", err)
	}

	return &fileConfig{
		Path:   path,
		Server: viper.GetString("server"),
		Login:  viper.GetString("login"),
	}, nil
}

type fileConfig struct {
	Path   string `json:"path"`
	Server string `json:"server"`
	Login  string `json:"login"`
}

func (f *fileConfig) BasePath() string { return f.Path }

func (f *fileConfig) ServerURL() string { return f.Server }

// LoginURL defaults to the server's login page when not set explicitly.
func (f *fileConfig) LoginURL() string {
	if f.Login != "" {
		return f.Login
	}
	return f.Server + "/login"
}
