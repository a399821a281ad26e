package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/landsync/internal/config"
)

// OriginURL is the base URL of the fake origin.
const OriginURL = "http://origin.test"

// Scenario defines an offline scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides gateway configuration keys, using the landsync.yaml
	// layout. origin is always the fake origin.
	Config yaml.Node `yaml:"config,omitempty"`

	// Routes are the fake origin's canned responses.
	Routes []Route `yaml:"routes"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Expect validates the state after the last step.
	Expect *FinalExpect `yaml:"expect,omitempty"`
}

// Route is a canned origin response. Unrouted requests get 404.
type Route struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	// Status defaults to 200.
	Status int    `yaml:"status,omitempty"`
	Body   string `yaml:"body,omitempty"`
	// ContentType defaults to application/json.
	ContentType string `yaml:"content_type,omitempty"`
}

// Step is exactly one action.
type Step struct {
	Network      string       `yaml:"network,omitempty"`
	OriginStatus *int         `yaml:"origin_status,omitempty"`
	Request      *RequestStep `yaml:"request,omitempty"`
	Sync         *SyncStep    `yaml:"sync,omitempty"`
	Install      bool         `yaml:"install,omitempty"`
}

// RequestStep sends one request through the gateway.
type RequestStep struct {
	// Method defaults to GET.
	Method   string          `yaml:"method,omitempty"`
	Path     string          `yaml:"path"`
	Body     string          `yaml:"body,omitempty"`
	Navigate bool            `yaml:"navigate,omitempty"`
	Expect   *ResponseExpect `yaml:"expect,omitempty"`
}

// ResponseExpect checks a gateway response. Zero values are not checked.
type ResponseExpect struct {
	Status int    `yaml:"status,omitempty"`
	Source string `yaml:"source,omitempty"`
	Body   string `yaml:"body,omitempty"`
}

// SyncStep runs one replay pass.
type SyncStep struct {
	Expect *SyncExpect `yaml:"expect,omitempty"`
}

// SyncExpect checks a replay summary. Nil fields are not checked.
type SyncExpect struct {
	Synced  *int `yaml:"synced,omitempty"`
	Failed  *int `yaml:"failed,omitempty"`
	Skipped *int `yaml:"skipped,omitempty"`
}

// FinalExpect checks the state after the last step. Nil fields are not
// checked.
type FinalExpect struct {
	// Pending is the number of queued writes.
	Pending *int `yaml:"pending,omitempty"`
	// PendingKeys are the business keys of queued writes in FIFO order.
	PendingKeys []string `yaml:"pending_keys,omitempty"`
	// Synced and Failed are totals over every sync step.
	Synced *int `yaml:"synced,omitempty"`
	Failed *int `yaml:"failed,omitempty"`
	// Delivered are the write bodies the origin received, in order.
	Delivered []string `yaml:"delivered,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// GatewayConfig returns the default configuration with the scenario's
// overrides applied and the origin pointed at the fake origin.
func (s *Scenario) GatewayConfig() (config.Config, error) {
	cfg := config.Default()
	if !s.Config.IsZero() {
		if err := s.Config.Decode(&cfg); err != nil {
			return config.Config{}, fmt.Errorf("config: %w", err)
		}
	}
	cfg.Origin = OriginURL
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, r := range s.Routes {
		if r.Method == "" || r.Path == "" {
			return fmt.Errorf("routes[%d]: method and path are required", i)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("routes[%d]: path must start with /", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	if _, err := s.GatewayConfig(); err != nil {
		return err
	}
	return nil
}

// validateStep checks that a step names exactly one action.
func validateStep(index int, st *Step) error {
	actions := 0
	if st.Network != "" {
		actions++
		if st.Network != "up" && st.Network != "down" {
			return fmt.Errorf("steps[%d]: network must be up or down, got %q", index, st.Network)
		}
	}
	if st.OriginStatus != nil {
		actions++
		if n := *st.OriginStatus; n != 0 && (n < 100 || n > 599) {
			return fmt.Errorf("steps[%d]: origin_status %d is not an HTTP status", index, n)
		}
	}
	if st.Request != nil {
		actions++
		if !strings.HasPrefix(st.Request.Path, "/") {
			return fmt.Errorf("steps[%d]: request path must start with /", index)
		}
		if st.Request.Method == "" {
			st.Request.Method = http.MethodGet
		}
		st.Request.Method = strings.ToUpper(st.Request.Method)
	}
	if st.Sync != nil {
		actions++
	}
	if st.Install {
		actions++
	}

	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of network, origin_status, request, sync, install is required", index)
	}
	return nil
}
