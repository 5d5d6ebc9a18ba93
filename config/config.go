// Package config assembles the service configuration from environment
// variables, with struct-tag defaults and declarative validation.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `default:"8080" validate:"numeric"`
	FlowsDir string `default:"flows" validate:"required"`

	MongoURI      string `default:"mongodb://localhost:27017" validate:"required,uri"`
	MongoDatabase string `default:"roboto" validate:"required"`

	NLUBaseURL      string `validate:"required,url"`
	NLUToken        string `validate:"required"`
	ITSMBaseURL     string `validate:"required,url"`
	OrchestratorURL string `validate:"required,url"`
	MessengerURL    string `validate:"required,url"`

	// MappingPath points at the YAML file mapping flow names to the intents
	// that gate into them.
	MappingPath string `default:"flows/mapping.yaml" validate:"required"`
}

// Load reads the environment, applies defaults to what is unset, and
// validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("applying config defaults: %w", err)
	}

	setenv(&cfg.Port, "PORT")
	setenv(&cfg.FlowsDir, "FLOWS_DIR")
	setenv(&cfg.MongoURI, "MONGO_URI")
	setenv(&cfg.MongoDatabase, "MONGO_DATABASE")
	setenv(&cfg.NLUBaseURL, "NLU_BASE_URL")
	setenv(&cfg.NLUToken, "NLU_TOKEN")
	setenv(&cfg.ITSMBaseURL, "ITSM_BASE_URL")
	setenv(&cfg.OrchestratorURL, "ORCHESTRATOR_URL")
	setenv(&cfg.MessengerURL, "MESSENGER_URL")
	setenv(&cfg.MappingPath, "MAPPING_PATH")

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setenv(field *string, name string) {
	if value := os.Getenv(name); value != "" {
		*field = value
	}
}

// LoadMapping reads the flow/intent mapping: one YAML map from flow name to
// the list of intents that route into it.
func LoadMapping(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow mapping %s: %w", path, err)
	}
	mapping := make(map[string][]string)
	if err := yaml.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("decoding flow mapping %s: %w", path, err)
	}
	return mapping, nil
}
