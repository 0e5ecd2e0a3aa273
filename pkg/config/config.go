package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// Filename into which Config is serialized
	Filename = "config.yaml"

	// EnvironmentDevelopment selects the development EventListener routes.
	EnvironmentDevelopment = "development"

	// EnvironmentProduction is assumed when no environment is configured and
	// NODE_ENV is not development.
	EnvironmentProduction = "production"

	// DefaultLogFormat writes human readable log lines.
	DefaultLogFormat = "console"

	// DefaultImageContextRetries is the number of retries when forwarding
	// build results to the portal backend.
	DefaultImageContextRetries = 3

	DefaultStartInterval  = 1 * time.Second
	DefaultStartAttempts  = 10
	DefaultFinishInterval = 5 * time.Second
	DefaultFinishAttempts = 120
)

// Global configuration settings.
type Global struct {
	// Environment is either "development" or "production".  Empty defers to
	// $NODE_ENV.
	Environment string `yaml:"environment,omitempty"`
	// OpenShiftBaseDomain is the apps domain of the development cluster.
	OpenShiftBaseDomain string `yaml:"openshiftBaseDomain,omitempty"`
	// BackendURL is the base URL of the portal backend receiving build results.
	BackendURL string `yaml:"backendUrl,omitempty"`
	// Endpoints overrides the EventListener URL per action id.
	Endpoints map[string]string `yaml:"endpoints,omitempty"`
	// HostAliases redirects unresolvable hosts (host -> host[:port]).
	HostAliases map[string]string `yaml:"hostAliases,omitempty"`
	Insecure    bool              `yaml:"insecure,omitempty"`
	Verbose     bool              `yaml:"verbose,omitempty"`
	LogFormat   string            `yaml:"logFormat,omitempty"`
	// NotifySink receives a CloudEvent when a followed PipelineRun completes.
	NotifySink          string `yaml:"notifySink,omitempty"`
	ImageContextRetries int    `yaml:"imageContextRetries,omitempty"`

	StartInterval  time.Duration `yaml:"startInterval,omitempty"`
	StartAttempts  int           `yaml:"startAttempts,omitempty"`
	FinishInterval time.Duration `yaml:"finishInterval,omitempty"`
	FinishAttempts int           `yaml:"finishAttempts,omitempty"`
	// NOTE: all members must include their yaml serialized names, even when
	// this is the default, because these tag values are used for the static
	// getter/setter accessors to match requests.
}

// New Config struct with all members set to static defaults.  See NewDefault
// for one which further takes into account the optional config file.
func New() Global {
	return Global{
		LogFormat:           DefaultLogFormat,
		ImageContextRetries: DefaultImageContextRetries,
		StartInterval:       DefaultStartInterval,
		StartAttempts:       DefaultStartAttempts,
		FinishInterval:      DefaultFinishInterval,
		FinishAttempts:      DefaultFinishAttempts,
	}
}

// NewDefault returns a config populated by global defaults as defined by the
// config file located in .Path() (the global settings path, which is
//
//	usually ~/.config/pipetrigger).
//
// The config path is not required to be present.
func NewDefault() (cfg Global, err error) {
	cfg = New()
	cp := File()
	bb, err := os.ReadFile(cp)
	if err != nil {
		if os.IsNotExist(err) {
			err = nil // config file is not required
		}
		return
	}
	err = yaml.Unmarshal(bb, &cfg) // cfg now has applied config.yaml
	return
}

// Load the config exactly as it exists at path (no static defaults)
func Load(path string) (c Global, err error) {
	bb, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("error reading global config: %w", err)
	}
	err = yaml.Unmarshal(bb, &c)
	return
}

// Write the config to the given path
// To use the currently configured path (used by the constructor) use File()
//
//	c := config.NewDefault()
//	c.Verbose = true
//	c.Write(config.File())
func (c Global) Write(path string) (err error) {
	bb, _ := yaml.Marshal(&c) // Marshaling no longer errors; this is back compat
	return os.WriteFile(path, bb, 0600)
}

// IsDevelopment reports whether development routes should be used.
// NODE_ENV=development is honored for portals migrating their settings.
func (c Global) IsDevelopment() bool {
	if c.Environment != "" {
		return c.Environment == EnvironmentDevelopment
	}
	return os.Getenv("NODE_ENV") == EnvironmentDevelopment
}

// BaseDomain returns the configured OpenShift apps domain, falling back to
// $OPENSHIFT_BASE_DOMAIN.
func (c Global) BaseDomain() string {
	if c.OpenShiftBaseDomain != "" {
		return c.OpenShiftBaseDomain
	}
	return os.Getenv("OPENSHIFT_BASE_DOMAIN")
}

// Endpoint returns the configured EventListener URL for the action or dflt.
func (c Global) Endpoint(actionID, dflt string) string {
	if e, ok := c.Endpoints[actionID]; ok && e != "" {
		return e
	}
	return dflt
}

// Dir is derived in the following order, from lowest
// to highest precedence.
//  1. The default path is the zero value, indicating "no config path available",
//     and users of this package should act accordingly.
//  2. ~/.config/pipetrigger if it exists (can be expanded: user has a home dir)
//  3. The value of $XDG_CONFIG_HOME/pipetrigger if the environment variable exists.
func Dir() (path string) {
	// Use home if available
	if home, err := os.UserHomeDir(); err == nil {
		path = filepath.Join(home, ".config", "pipetrigger")
	}

	// 'XDG_CONFIG_HOME/pipetrigger' takes precedence if defined
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		path = filepath.Join(xdg, "pipetrigger")
	}

	return
}

// File returns the full path at which to look for a config file.
// Use PIPETRIGGER_CONFIG_FILE to override default.
func File() string {
	path := filepath.Join(Dir(), Filename)
	if e := os.Getenv("PIPETRIGGER_CONFIG_FILE"); e != "" {
		path = e
	}
	return path
}

// CreatePaths creates the on-disk config structure.
// Current structure is:
// ~/.config/pipetrigger
func CreatePaths() (err error) {
	if err = os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("error creating global config path: %v", err)
	}
	return
}

// Static Accessors
//
// Accessors to globally configurable options are implemented as static
// package functions to retain the benefits of pass-by-value already in use
// on most system structures.
//
//	c, err = config.Set(c, "key", "value")
//
// Map members are addressed as "member.key", for example
// "endpoints.ibm:call-mq-build-pipeline".

// List the globally configurable settings by the key which can be used
// in the accessors Get and Set, and in the associated disk serialized.
// Sorted.
func List() []string {
	keys := []string{}
	t := reflect.TypeOf(Global{})
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, yamlName(t.Field(i)))
	}
	sort.Strings(keys)
	return keys
}

// Get the named global config value from the given global config struct.
// Nonexistent values return nil.
func Get(c Global, name string) any {
	name, key, isMapKey := strings.Cut(name, ".")
	fieldValue, err := getField(&c, name)
	if err != nil {
		return nil
	}
	if isMapKey {
		if fieldValue.Kind() != reflect.Map {
			return nil
		}
		v := fieldValue.MapIndex(reflect.ValueOf(key))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	}
	return fieldValue.Interface()
}

// Set value of a member by name and a stringified value.
// Fails if the passed value can not be coerced into the value expected
// by the member indicated by name.
func Set(c Global, name, value string) (Global, error) {
	name, key, isMapKey := strings.Cut(name, ".")
	fieldValue, err := getField(&c, name)
	if err != nil {
		return c, err
	}

	if isMapKey {
		if fieldValue.Kind() != reflect.Map {
			return c, fmt.Errorf("global config value %q is not a map", name)
		}
		m := make(map[string]string, fieldValue.Len()+1)
		iter := fieldValue.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().String()
		}
		m[key] = value
		fieldValue.Set(reflect.ValueOf(m))
		return c, nil
	}

	var v reflect.Value
	switch {
	case fieldValue.Type() == reflect.TypeOf(time.Duration(0)):
		d, err := time.ParseDuration(value)
		if err != nil {
			return c, err
		}
		v = reflect.ValueOf(d)
	case fieldValue.Kind() == reflect.String:
		v = reflect.ValueOf(value)
	case fieldValue.Kind() == reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return c, err
		}
		v = reflect.ValueOf(boolValue)
	case fieldValue.Kind() == reflect.Int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return c, err
		}
		v = reflect.ValueOf(intValue)
	default:
		return c, fmt.Errorf("global config value type not yet implemented: %v", fieldValue.Kind())
	}
	fieldValue.Set(v)

	return c, nil
}

// Get an assignable reflect.Value for the struct field with the given yaml
// tag name.
func getField(c *Global, name string) (reflect.Value, error) {
	t := reflect.TypeOf(c).Elem()
	for i := 0; i < t.NumField(); i++ {
		if yamlName(t.Field(i)) == name {
			return reflect.ValueOf(c).Elem().Field(i), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("field not found on global config: %v", name)
}

func yamlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	return name
}
