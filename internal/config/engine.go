package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/spf13/viper"
)

// EngineConfig carries the calculation knobs that may change without a
// redeploy.
type EngineConfig struct {
	CurrencyScale int32         `mapstructure:"currencyScale"`
	RoundingMode  string        `mapstructure:"roundingMode"`
	PeriodGrace   time.Duration `mapstructure:"periodGrace"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CurrencyScale: money.CurrencyScale,
		RoundingMode:  string(money.RoundHalfUp),
		PeriodGrace:   0,
	}
}

// Policy converts the config into a rounding policy. Callers only see
// validated configs, so the parse cannot fail here.
func (c EngineConfig) Policy() money.Policy {
	mode, err := money.ParseRoundingMode(c.RoundingMode)
	if err != nil {
		mode = money.RoundHalfUp
	}
	return money.Policy{Scale: c.CurrencyScale, Mode: mode}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

// NewStaticEngineConfigHolder pins cfg; used by tests and tools.
func NewStaticEngineConfigHolder(cfg EngineConfig) (*EngineConfigHolder, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("royalty")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/royalty/config")
	v.AddConfigPath("/etc/royalty")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ROYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.currencyScale", defaults.CurrencyScale)
	v.SetDefault("engine.roundingMode", defaults.RoundingMode)
	v.SetDefault("engine.periodGrace", defaults.PeriodGrace)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg EngineConfig
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return nil, err
	}
	holder, err := NewStaticEngineConfigHolder(cfg)
	if err != nil {
		return nil, err
	}

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated EngineConfig
			if err := v.UnmarshalKey("engine", &updated); err != nil {
				log.Printf("[engine-config] reload failed: %v", err)
				return
			}
			if err := validateEngineConfig(updated); err != nil {
				log.Printf("[engine-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[engine-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *EngineConfigHolder) Get() EngineConfig {
	return h.current.Load().(EngineConfig)
}

func (h *EngineConfigHolder) Policy() money.Policy {
	return h.Get().Policy()
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.CurrencyScale < 0 || cfg.CurrencyScale > 8 {
		return errors.New("engine.currencyScale must be between 0 and 8")
	}
	if _, err := money.ParseRoundingMode(cfg.RoundingMode); err != nil {
		return errors.New("engine.roundingMode must be half_up or half_even")
	}
	if cfg.PeriodGrace < 0 {
		return errors.New("engine.periodGrace cannot be negative")
	}
	return nil
}
