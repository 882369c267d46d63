// Package config loads analysis configuration from files and environment,
// mirroring the layered lookup of the CLI config.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/akita-tools/akita/internal/pattern"
)

// Config holds application configuration.
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	// Analysis defaults
	Analysis AnalysisConfig `mapstructure:"analysis"`

	// Rules override the built-in line matchers and lookup tables.
	Rules RulesConfig `mapstructure:"rules"`
}

// AnalysisConfig holds the tracked-app list and sequence parameters.
type AnalysisConfig struct {
	// Apps is the ordered list of important packages; the expected startup
	// sequence is this list repeated Rounds times.
	Apps   []string `mapstructure:"apps"`
	Rounds int      `mapstructure:"rounds"`

	// Tolerance bounds the window-alignment mismatch budget.
	Tolerance int `mapstructure:"tolerance"`

	// StrictPIDMatch requires pid equality before a kill is attributed to a
	// tracked start.
	StrictPIDMatch bool `mapstructure:"strict_pid_match"`
}

// RulesConfig carries optional pattern/table overrides.
type RulesConfig struct {
	Patterns      map[string]string `mapstructure:"patterns"`
	KillTypeMap   map[string]string `mapstructure:"kill_type_map"`
	MinScoreMap   map[string]string `mapstructure:"min_score_map"`
	LegacyFields  []string          `mapstructure:"killinfo_fields_legacy"`
	CompactFields []string          `mapstructure:"killinfo_fields_compact"`
}

// defaultApps is the fallback tracked-app list used when no config names
// one; the common set exercised by continuous-startup tests.
var defaultApps = []string{
	"com.tencent.mm", "com.ss.android.ugc.aweme", "com.smile.gifmaker",
	"tv.danmaku.bili", "com.ss.android.article.news", "com.dragon.read",
	"com.tencent.mobileqq", "com.alibaba.android.rimet", "com.xunmeng.pinduoduo",
	"com.baidu.searchbox", "com.ss.android.article.video", "com.tencent.qqlive",
	"com.taobao.taobao", "com.qiyi.video", "com.UCMobile", "com.kmxs.reader",
	"com.tencent.mtt", "com.youku.phone", "com.sina.weibo", "com.quark.browser",
	"com.eg.android.AlipayGphone", "com.autonavi.minimap", "com.duowan.kiwi",
	"com.sankuai.meituan", "com.jingdong.app.mall", "com.zhihu.android",
	"air.tv.douyu.android", "com.qidian.QDReader", "com.tencent.tmgp.pubgmhd",
	"com.tencent.tmgp.sgame",
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Format: "text",
		Analysis: AnalysisConfig{
			Apps:      append([]string(nil), defaultApps...),
			Rounds:    2,
			Tolerance: 10,
		},
	}
}

// PatternOverrides converts the rules section into the registry's override
// shape. Min-score keys arrive as strings from YAML and are parsed here;
// unparseable keys are dropped.
func (c *Config) PatternOverrides() *pattern.Overrides {
	ov := &pattern.Overrides{
		Patterns:      c.Rules.Patterns,
		KillTypeMap:   c.Rules.KillTypeMap,
		LegacyFields:  c.Rules.LegacyFields,
		CompactFields: c.Rules.CompactFields,
	}
	if len(c.Rules.MinScoreMap) > 0 {
		ov.MinScoreMap = make(map[int64]string, len(c.Rules.MinScoreMap))
		for k, v := range c.Rules.MinScoreMap {
			if n, err := strconv.ParseInt(k, 10, 64); err == nil {
				ov.MinScoreMap[n] = v
			}
		}
	}
	return ov
}

// Load loads configuration from files and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("akita")
	v.SetConfigType("yaml")

	// Config paths, lowest precedence first.
	v.AddConfigPath("/etc/akita/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "akita"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".akita")
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("AKITA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "AKITA_FORMAT")
	v.BindEnv("quiet", "AKITA_QUIET")
	v.BindEnv("verbose", "AKITA_VERBOSE")
	v.BindEnv("analysis.rounds", "AKITA_ROUNDS")

	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("analysis.rounds", cfg.Analysis.Rounds)
	v.SetDefault("analysis.tolerance", cfg.Analysis.Tolerance)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file; defaults apply.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if len(cfg.Analysis.Apps) == 0 {
		cfg.Analysis.Apps = append([]string(nil), defaultApps...)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if len(cfg.Analysis.Apps) == 0 {
		cfg.Analysis.Apps = append([]string(nil), defaultApps...)
	}
	return cfg, nil
}
