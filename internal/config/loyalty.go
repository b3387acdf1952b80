package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoyaltyConfig holds the stamp-card policy knobs that operators tune
// without redeploying: the default goal for new cards, the demo store
// used as a claim fallback, and the shape of issued claim tokens.
type LoyaltyConfig struct {
	// DefaultGoal is the stamp goal for cards whose store does not
	// override it. Must be positive.
	DefaultGoal int `mapstructure:"defaultGoal"`

	// DemoStoreID is the store bound to claim tokens that resolve to no
	// store of their own. Empty disables the fallback and such claims
	// fail instead.
	DemoStoreID string `mapstructure:"demoStoreId"`

	// ClaimTokenBytes is the number of random bytes behind an issued
	// claim token (hex-encoded, so tokens are twice this many chars).
	ClaimTokenBytes int `mapstructure:"claimTokenBytes"`
}

func DefaultLoyaltyConfig() LoyaltyConfig {
	return LoyaltyConfig{
		DefaultGoal:     10,
		DemoStoreID:     "store_demo_1",
		ClaimTokenBytes: 16,
	}
}

// LoyaltyConfigHolder exposes the current loyalty policy and hot-reloads
// it when the config file changes on disk.
type LoyaltyConfigHolder struct {
	current atomic.Value // holds LoyaltyConfig
}

func NewLoyaltyConfigHolder() (*LoyaltyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("loyalty")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/loyala/config") // Volume-mounted config
	v.AddConfigPath("/etc/loyala")            // System config
	v.AddConfigPath(".")                      // Current directory (dev mode)

	v.SetEnvPrefix("LOYALA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLoyaltyConfig()
	v.SetDefault("loyalty.defaultGoal", defaults.DefaultGoal)
	v.SetDefault("loyalty.demoStoreId", defaults.DemoStoreID)
	v.SetDefault("loyalty.claimTokenBytes", defaults.ClaimTokenBytes)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg LoyaltyConfig
	if err := v.UnmarshalKey("loyalty", &cfg); err != nil {
		return nil, err
	}
	if err := validateLoyaltyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &LoyaltyConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LoyaltyConfig
		if err := v.UnmarshalKey("loyalty", &updated); err != nil {
			log.Printf("[loyalty-config] reload failed: %v", err)
			return
		}
		if err := validateLoyaltyConfig(updated); err != nil {
			log.Printf("[loyalty-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[loyalty-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *LoyaltyConfigHolder) Get() LoyaltyConfig {
	return h.current.Load().(LoyaltyConfig)
}

// NewStaticLoyaltyConfigHolder wraps a fixed config, for tests.
func NewStaticLoyaltyConfigHolder(cfg LoyaltyConfig) *LoyaltyConfigHolder {
	holder := &LoyaltyConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateLoyaltyConfig(cfg LoyaltyConfig) error {
	if cfg.DefaultGoal <= 0 {
		return errors.New("loyalty.defaultGoal must be positive")
	}
	if cfg.ClaimTokenBytes <= 0 {
		return errors.New("loyalty.claimTokenBytes must be positive")
	}
	return nil
}
