/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for procctl.
// config 包提供 procctl 的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Command line flags / 命令行参数
// 2. Environment variables (PROCCTL_*) / 环境变量（PROCCTL_*）
// 3. Configuration file / 配置文件
// 4. Default values / 默认值
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath       = "procctl.yaml"
	DefaultLogLevel         = "info"
	DefaultLogMaxSize       = 100 // MB
	DefaultLogMaxBackups    = 3
	DefaultLogMaxAge        = 7 // days
	DefaultTerminateTimeout = 30 * time.Second
	DefaultKillTimeout      = 10 * time.Second
	DefaultDrainTimeout     = 2 * time.Second
	DefaultOutputEncoding   = "CONSOLE"
	DefaultOnTimeout        = "terminate"
	DefaultHistoryPath      = "procctl-history.db"
	DefaultHistoryBatchSize = 50
	DefaultFlushInterval    = 5 * time.Second
	DefaultTelemetryService = "procctl"
	DefaultTelemetryAddress = "localhost:4317"

	// EnvPrefix is the prefix of environment variable overrides
	// EnvPrefix 是环境变量覆盖项的前缀
	EnvPrefix = "PROCCTL"
)

// FlagKeys maps command line flag names to configuration keys
// FlagKeys 将命令行参数名映射到配置键
var FlagKeys = map[string]string{
	"log-level":         "log.level",
	"log-file":          "log.file",
	"terminate-timeout": "process.terminate_timeout",
	"kill-timeout":      "process.kill_timeout",
	"drain-timeout":     "process.drain_timeout",
	"output-encoding":   "process.output_encoding",
	"on-timeout":        "process.on_timeout",
	"history":           "history.enabled",
	"history-path":      "history.path",
	"telemetry":         "telemetry.enabled",
	"otlp-endpoint":     "telemetry.endpoint",
}

// Config represents the procctl configuration
// Config 表示 procctl 配置
type Config struct {
	// Log configuration / 日志配置
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Process control configuration / 进程控制配置
	Process ProcessConfig `mapstructure:"process" yaml:"process"`

	// Execution history configuration / 执行历史配置
	History HistoryConfig `mapstructure:"history" yaml:"history"`

	// Tracing configuration / 链路追踪配置
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level" yaml:"level"`

	// File is the log file path, empty logs to stderr only
	// File 是日志文件路径，为空时只输出到 stderr
	File string `mapstructure:"file" yaml:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age" yaml:"max_age"`
}

// ProcessConfig contains process control settings
// ProcessConfig 包含进程控制设置
type ProcessConfig struct {
	// TerminateTimeout is the grace period before a terminated process is killed
	// TerminateTimeout 是被终止进程在强制终止前的宽限期
	TerminateTimeout time.Duration `mapstructure:"terminate_timeout" yaml:"terminate_timeout"`

	// KillTimeout is how long a killed process may take to exit
	// KillTimeout 是被强制终止的进程退出所允许的时间
	KillTimeout time.Duration `mapstructure:"kill_timeout" yaml:"kill_timeout"`

	// DrainTimeout bounds reading output after the process exited
	// DrainTimeout 限制进程退出后读取输出的时长
	DrainTimeout time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout"`

	// OutputEncoding is the default encoding of process output
	// OutputEncoding 是进程输出的默认编码
	OutputEncoding string `mapstructure:"output_encoding" yaml:"output_encoding"`

	// OnTimeout is the default action when a wait times out
	// OnTimeout 是等待超时时的默认操作
	OnTimeout string `mapstructure:"on_timeout" yaml:"on_timeout"`
}

// HistoryConfig contains execution history settings
// HistoryConfig 包含执行历史设置
type HistoryConfig struct {
	// Enabled records lifecycle events to SQLite
	// Enabled 表示将生命周期事件记录到 SQLite
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the SQLite database file
	// Path 是 SQLite 数据库文件
	Path string `mapstructure:"path" yaml:"path"`

	// BatchSize is the number of cached events that triggers a flush
	// BatchSize 是触发刷新的缓存事件数量
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// FlushInterval is the period of background flushes
	// FlushInterval 是后台刷新的周期
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
}

// TelemetryConfig contains OpenTelemetry settings
// TelemetryConfig 包含 OpenTelemetry 设置
type TelemetryConfig struct {
	// Enabled exports spans over OTLP/gRPC
	// Enabled 表示通过 OTLP/gRPC 导出 span
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector address
	// Endpoint 是 OTLP 收集器地址
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	// Insecure 表示与收集器通信时不使用 TLS
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// ServiceName is reported as the service.name resource attribute
	// ServiceName 作为 service.name 资源属性上报
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// Load loads configuration from file, environment variables and flags.
// flags may be nil; only flags listed in FlagKeys that were changed on the
// command line override other sources.
// Load 从文件、环境变量和命令行参数加载配置
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	// Set config file path / 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		v.SetConfigFile(DefaultConfigPath)
	}

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error / 配置文件不存在不是错误
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if flag := flags.Lookup(name); flag != nil && flag.Changed {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	return unmarshal(v)
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if len(bytes.TrimSpace(yamlData)) > 0 {
		if err := v.ReadConfig(bytes.NewReader(yamlData)); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return unmarshal(v)
}

// newViper creates a viper instance with defaults and env overrides
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)

	// Process defaults / 进程默认值
	v.SetDefault("process.terminate_timeout", DefaultTerminateTimeout)
	v.SetDefault("process.kill_timeout", DefaultKillTimeout)
	v.SetDefault("process.drain_timeout", DefaultDrainTimeout)
	v.SetDefault("process.output_encoding", DefaultOutputEncoding)
	v.SetDefault("process.on_timeout", DefaultOnTimeout)

	// History defaults / 历史默认值
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", DefaultHistoryPath)
	v.SetDefault("history.batch_size", DefaultHistoryBatchSize)
	v.SetDefault("history.flush_interval", DefaultFlushInterval)

	// Telemetry defaults / 追踪默认值
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", DefaultTelemetryAddress)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", DefaultTelemetryService)
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	// Validate timeouts / 验证超时时间
	if c.Process.TerminateTimeout <= 0 {
		return errors.New("process.terminate_timeout must be positive")
	}
	if c.Process.KillTimeout <= 0 {
		return errors.New("process.kill_timeout must be positive")
	}
	if c.Process.DrainTimeout <= 0 {
		return errors.New("process.drain_timeout must be positive")
	}

	validActions := map[string]bool{"continue": true, "terminate": true, "kill": true}
	if !validActions[strings.ToLower(c.Process.OnTimeout)] {
		return fmt.Errorf("invalid process.on_timeout: %s (must be continue, terminate, or kill)", c.Process.OnTimeout)
	}
	if c.Process.OutputEncoding == "" {
		return errors.New("process.output_encoding is required")
	}

	// Validate history / 验证历史配置
	if c.History.Enabled {
		if c.History.Path == "" {
			return errors.New("history.path is required when history is enabled")
		}
		if c.History.BatchSize < 1 {
			return errors.New("history.batch_size must be at least 1")
		}
		if c.History.FlushInterval < 100*time.Millisecond {
			return errors.New("history.flush_interval must be at least 100ms")
		}
	}

	// Validate telemetry / 验证追踪配置
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}

	return nil
}

// String returns a string representation of the config (for debugging)
// String 返回配置的字符串表示（用于调试）
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Log.Level: %s, Process.TerminateTimeout: %v, Process.OnTimeout: %s, History.Enabled: %t, Telemetry.Enabled: %t}",
		c.Log.Level,
		c.Process.TerminateTimeout,
		c.Process.OnTimeout,
		c.History.Enabled,
		c.Telemetry.Enabled,
	)
}

// ToYAML serializes the configuration to YAML format
// ToYAML 将配置序列化为 YAML 格式
func (c *Config) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Equal compares two configs for equality
// Equal 比较两个配置是否相等
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}
