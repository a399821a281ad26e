// Package config loads landsync.yaml.
//
// Loading is three steps: defaults, then the YAML file on top (unknown keys
// are rejected), then validation. Validation runs struct tags first for the
// fields every command needs, then the embedded CUE schema for the rest.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/landsync/internal/cache"
	"github.com/roach88/landsync/internal/intercept"
	"github.com/roach88/landsync/internal/queue"
	"github.com/roach88/landsync/internal/record"
)

//go:embed schema.cue
var schemaCUE string

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "landsync.yaml"

var validate = validator.New()

// Config is the full gateway configuration.
type Config struct {
	Listen               string        `yaml:"listen" json:"listen" validate:"required,hostname_port"`
	Origin               string        `yaml:"origin" json:"origin" validate:"required,url"`
	Database             string        `yaml:"database" json:"database"`
	APIPrefix            string        `yaml:"api_prefix" json:"api_prefix"`
	PrivateTimeout       time.Duration `yaml:"private_timeout" json:"private_timeout"`
	ProbeInterval        time.Duration `yaml:"probe_interval" json:"probe_interval"`
	HealthPath           string        `yaml:"health_path" json:"health_path"`
	OrganizationsPath    string        `yaml:"organizations_path" json:"organizations_path"`
	DefaultOrganizations []string      `yaml:"default_organizations" json:"default_organizations"`
	BusinessKeyField     string        `yaml:"business_key_field" json:"business_key_field"`
	MaxPending           int           `yaml:"max_pending" json:"max_pending"`
	OfflineMessage       string        `yaml:"offline_message" json:"offline_message"`
	Cache                CacheConfig   `yaml:"cache" json:"cache"`
}

// CacheConfig configures the response partitions.
type CacheConfig struct {
	StaticPartition string `yaml:"static_partition" json:"static_partition"`
	DataPartition   string `yaml:"data_partition" json:"data_partition"`
	OfflinePage     string `yaml:"offline_page" json:"offline_page"`
	// MaxMemoryMB limits the in-memory store when Persistent is false.
	MaxMemoryMB int  `yaml:"max_memory_mb" json:"max_memory_mb"`
	Persistent  bool `yaml:"persistent" json:"persistent"`
	// Precache lists app-shell paths fetched at install time.
	Precache []string `yaml:"precache" json:"precache"`
}

// Default returns the configuration used for any key the file omits.
// Origin has no default.
func Default() Config {
	ic := intercept.DefaultConfig()
	return Config{
		Listen:               "127.0.0.1:8090",
		Database:             "landsync.db",
		APIPrefix:            ic.APIPrefix,
		PrivateTimeout:       ic.PrivateTimeout,
		ProbeInterval:        15 * time.Second,
		HealthPath:           "/api/health",
		OrganizationsPath:    ic.OrganizationsPath,
		DefaultOrganizations: ic.DefaultOrganizations,
		BusinessKeyField:     record.DefaultBusinessKeyField,
		MaxPending:           0,
		OfflineMessage:       ic.OfflineMessage,
		Cache: CacheConfig{
			StaticPartition: cache.DefaultStaticPartition,
			DataPartition:   cache.DefaultDataPartition,
			OfflinePage:     ic.OfflinePageKey,
			MaxMemoryMB:     64,
			Persistent:      true,
			Precache:        []string{"/", "/index.html", "/offline.html", "/manifest.json"},
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r over the defaults and validates the result.
// An empty document yields the defaults, which fail validation without an
// origin.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and then the CUE schema.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := c.validateSchema(); err != nil {
		return err
	}

	if c.Cache.DataPartition == c.Cache.StaticPartition {
		return fmt.Errorf("invalid config: cache.data_partition must differ from cache.static_partition (%q)", c.Cache.StaticPartition)
	}
	return nil
}

func (c Config) validateSchema() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	// JSON null does not unify with a list
	n := c
	if n.DefaultOrganizations == nil {
		n.DefaultOrganizations = []string{}
	}
	if n.Cache.Precache == nil {
		n.Cache.Precache = []string{}
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename("config"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", formatCUEError(err))
	}
	return nil
}

// formatCUEError joins every CUE error message on one line.
func formatCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = path + ": " + msg
		}
		if pos := cueerrors.Positions(e); len(pos) > 0 && pos[0].IsValid() {
			msg = fmt.Sprintf("%s (%s)", msg, pos[0])
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

// OriginURL parses Origin.
func (c Config) OriginURL() (*url.URL, error) {
	u, err := url.Parse(c.Origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	return u, nil
}

// HealthURL is the absolute URL the prober polls.
func (c Config) HealthURL() string {
	return strings.TrimSuffix(c.Origin, "/") + c.HealthPath
}

// Intercept returns the interceptor policy settings.
func (c Config) Intercept() intercept.Config {
	return intercept.Config{
		APIPrefix:            c.APIPrefix,
		PrivateTimeout:       c.PrivateTimeout,
		OrganizationsPath:    c.OrganizationsPath,
		DefaultOrganizations: c.DefaultOrganizations,
		StaticPartition:      c.Cache.StaticPartition,
		DataPartition:        c.Cache.DataPartition,
		OfflinePageKey:       c.Cache.OfflinePage,
		OfflineMessage:       c.OfflineMessage,
	}
}

// Partitions returns the current partition names; Activate keeps only these.
func (c Config) Partitions() []string {
	return []string{c.Cache.StaticPartition, c.Cache.DataPartition}
}

// QueueOptions returns the queue settings carried by the config.
func (c Config) QueueOptions() []queue.Option {
	return []queue.Option{
		queue.WithBusinessKeyField(c.BusinessKeyField),
		queue.WithMaxRecords(c.MaxPending),
	}
}
