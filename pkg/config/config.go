// Package config loads cartpilot's YAML configuration, overlays values from
// .env files and the process environment, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/cartpilot/pkg/price"
)

// Environment variables that override file values.
const (
	EnvOrderCheckURL = "CARTPILOT_ORDER_CHECK_URL"
	EnvUserName      = "CARTPILOT_USER_NAME"
	EnvDevice        = "CARTPILOT_DEVICE"
	EnvStorageDir    = "CARTPILOT_STORAGE_DIR"
	EnvLogLevel      = "CARTPILOT_LOG_LEVEL"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full runtime configuration.
type Config struct {
	Device      Device      `yaml:"device"`
	App         App         `yaml:"app"`
	Timing      Timing      `yaml:"timing"`
	Labels      Labels      `yaml:"labels"`
	Keywords    Keywords    `yaml:"keywords"`
	Scan        Scan        `yaml:"scan"`
	Negotiation Negotiation `yaml:"negotiation"`
	API         API         `yaml:"api"`
	Storage     Storage     `yaml:"storage"`
	Log         Log         `yaml:"log"`
}

// Device selects the target phone and the UIAutomator2 server endpoint.
type Device struct {
	Serial     string `yaml:"serial"`
	HostPort   int    `yaml:"hostPort"`
	ServerPort int    `yaml:"serverPort"`
	// InputsPerSecond caps synthetic input.
	InputsPerSecond float64 `yaml:"inputsPerSecond"`
}

// App identifies the shopping application.
type App struct {
	Package     string `yaml:"package"`
	DisplayName string `yaml:"displayName"`
	Activity    string `yaml:"activity"`
}

// Timing holds the waits used across flows. Values are durations such as
// "800ms" or "2s".
type Timing struct {
	FindTimeout       Duration `yaml:"findTimeout"`
	PageLoad          Duration `yaml:"pageLoad"`
	AfterClick        Duration `yaml:"afterClick"`
	AfterSwipe        Duration `yaml:"afterSwipe"`
	AfterBack         Duration `yaml:"afterBack"`
	LaunchWait        Duration `yaml:"launchWait"`
	ForegroundPoll    Duration `yaml:"foregroundPoll"`
	ForegroundRetries int      `yaml:"foregroundRetries"`
	SwipeDurationMs   int      `yaml:"swipeDurationMs"`
}

// Labels are the UI strings used as anchors and button synonyms.
type Labels struct {
	HomeTab          []string `yaml:"homeTab"`
	SearchBox        []string `yaml:"searchBox"`
	SearchButton     []string `yaml:"searchButton"`
	Recommend        []string `yaml:"recommend"`
	PersonalTab      []string `yaml:"personalTab"`
	PendingPayment   []string `yaml:"pendingPayment"`
	PendingDelivery  []string `yaml:"pendingDelivery"`
	Favorites        []string `yaml:"favorites"`
	ListAnchors      []string `yaml:"listAnchors"`
	DetailAnchors    []string `yaml:"detailAnchors"`
	SpecAnchors      []string `yaml:"specAnchors"`
	PersonalAnchors  []string `yaml:"personalAnchors"`
	BuyButtons       []string `yaml:"buyButtons"`
	PayButtons       []string `yaml:"payButtons"`
	PayFailure       []string `yaml:"payFailure"`
	FavoriteButtons  []string `yaml:"favoriteButtons"`
	FavoriteDescs    []string `yaml:"favoriteDescs"`
	FavoriteSuccess  []string `yaml:"favoriteSuccess"`
	FavoriteFailure  []string `yaml:"favoriteFailure"`
	DeleteButtons    []string `yaml:"deleteButtons"`
	ConfirmButtons   []string `yaml:"confirmButtons"`
	SettleButtons    []string `yaml:"settleButtons"`
	SelectItem       []string `yaml:"selectItem"`
	Logistics        []string `yaml:"logistics"`
	CopyButtons      []string `yaml:"copyButtons"`
	ShareButtons     []string `yaml:"shareButtons"`
	CopyLinkButtons  []string `yaml:"copyLinkButtons"`
	MainImageIDs     []string `yaml:"mainImageIds"`
	MainImageDescs   []string `yaml:"mainImageDescs"`
	ShopSuffixes     []string `yaml:"shopSuffixes"`
	SpecSelectedHint []string `yaml:"specSelectedHint"`
}

// Keywords are the deny-list and promotional filters. Both are hot-reloadable.
type Keywords struct {
	Forbidden   []string `yaml:"forbidden"`
	Promotional []string `yaml:"promotional"`
}

// Scan tunes candidate discovery.
type Scan struct {
	DedupDistancePx   float64 `yaml:"dedupDistancePx"`
	HistorySize       int     `yaml:"historySize"`
	ExcludeTopRatio   float64 `yaml:"excludeTopRatio"`
	MaxScrolls        int     `yaml:"maxScrolls"`
	MaxEmptyScreens   int     `yaml:"maxEmptyScreens"`
	ImageMaxDxPx      int     `yaml:"imageMaxDxPx"`
	ImageMinSidePx    int     `yaml:"imageMinSidePx"`
	AncestorLevels    int     `yaml:"ancestorLevels"`
	ClassifyScrollTry int     `yaml:"classifyScrollTry"`
}

// Negotiation tunes the variant carousel walk.
type Negotiation struct {
	MaxSteps       int `yaml:"maxSteps"`
	NoImproveLimit int `yaml:"noImproveLimit"`
}

// API configures the order-permission backend.
type API struct {
	OrderCheckURL string   `yaml:"orderCheckUrl"`
	UserName      string   `yaml:"userName"`
	Timeout       Duration `yaml:"timeout"`
	MaxRetries    int      `yaml:"maxRetries"`
	RetryDelay    Duration `yaml:"retryDelay"`
}

// Storage is where history, profile and reports are written.
type Storage struct {
	Dir string `yaml:"dir"`
}

// Log configures the log stream.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
	NoColor    bool   `yaml:"noColor"`
}

// Duration is a time.Duration that unmarshals from "500ms"-style strings or
// from integers (milliseconds).
type Duration time.Duration

// D returns the value as time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if ms, err := strconv.Atoi(node.Value); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load reads the YAML file at path (optional; "" means defaults only),
// overlays .env and environment variables, and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvOrderCheckURL); v != "" {
		c.API.OrderCheckURL = v
	}
	if v := os.Getenv(EnvUserName); v != "" {
		c.API.UserName = v
	}
	if v := os.Getenv(EnvDevice); v != "" {
		c.Device.Serial = v
	}
	if v := os.Getenv(EnvStorageDir); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.App.Package == "" {
		return fmt.Errorf("%w: app.package is required", ErrInvalid)
	}
	if c.Device.InputsPerSecond < 0 {
		return fmt.Errorf("%w: device.inputsPerSecond must be >= 0", ErrInvalid)
	}
	if c.Scan.DedupDistancePx <= 0 {
		return fmt.Errorf("%w: scan.dedupDistancePx must be > 0", ErrInvalid)
	}
	if c.Scan.HistorySize <= 0 {
		return fmt.Errorf("%w: scan.historySize must be > 0", ErrInvalid)
	}
	if c.Scan.ExcludeTopRatio < 0 || c.Scan.ExcludeTopRatio >= 1 {
		return fmt.Errorf("%w: scan.excludeTopRatio must be in [0,1)", ErrInvalid)
	}
	if c.Negotiation.MaxSteps <= 0 || c.Negotiation.NoImproveLimit <= 0 {
		return fmt.Errorf("%w: negotiation.maxSteps and noImproveLimit must be > 0", ErrInvalid)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("%w: api.maxRetries must be >= 0", ErrInvalid)
	}
	if c.Timing.ForegroundRetries <= 0 {
		return fmt.Errorf("%w: timing.foregroundRetries must be > 0", ErrInvalid)
	}
	return nil
}

// PromoFilter builds the promotional-text filter from the keyword list.
func (c *Config) PromoFilter() price.PromoFilter {
	return price.NewPromoFilter(c.Keywords.Promotional)
}
