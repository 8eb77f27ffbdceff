// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"fin-analyzer-go/pkg/apperr"
)

// APIKeyEnv 是 LLM 服务商密钥所在的环境变量。
const APIKeyEnv = "OPENROUTER_API_KEY"

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Tika      TikaConfig      `mapstructure:"tika"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// DatabaseConfig 存储分析记录库的连接配置。
// Driver 为 sqlite 时 DSN 是数据库文件路径。
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	MaxIterations  int     `mapstructure:"max_iterations"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// ExtractorConfig 选择 PDF 文本提取的实现：local（进程内解析）或 tika。
type ExtractorConfig struct {
	PDFBackend string `mapstructure:"pdf_backend"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AnalysisConfig 存储分析流水线相关的配置。
type AnalysisConfig struct {
	MaxChars   int    `mapstructure:"max_chars"`
	Validation string `mapstructure:"validation"`
	ScratchDir string `mapstructure:"scratch_dir"`
}

// Load 从指定路径读取 YAML 配置（文件不存在时只使用默认值），叠加环境变量后校验。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FIN_ANALYZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", APIKeyEnv); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("检查配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查启动所必需的配置项。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return apperr.Configuration(nil, "missing LLM API key: set %s", APIKeyEnv)
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return apperr.Configuration(nil, "unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return apperr.Configuration(nil, "database dsn is empty")
	}
	switch c.Extractor.PDFBackend {
	case "local":
	case "tika":
		if c.Tika.ServerURL == "" {
			return apperr.Configuration(nil, "tika.server_url is required when extractor.pdf_backend is tika")
		}
	default:
		return apperr.Configuration(nil, "unsupported pdf backend %q", c.Extractor.PDFBackend)
	}
	switch c.Analysis.Validation {
	case "off", "warn", "strict":
	default:
		return apperr.Configuration(nil, "unsupported analysis.validation %q", c.Analysis.Validation)
	}
	if c.Analysis.MaxChars <= 0 {
		return apperr.Configuration(nil, "analysis.max_chars must be positive, got %d", c.Analysis.MaxChars)
	}
	if c.LLM.MaxIterations <= 0 {
		return apperr.Configuration(nil, "llm.max_iterations must be positive, got %d", c.LLM.MaxIterations)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_upload_mb", 32)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./financial_analysis.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "openai/gpt-3.5-turbo")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.max_iterations", 1)
	v.SetDefault("llm.timeout_seconds", 120)

	v.SetDefault("extractor.pdf_backend", "local")
	v.SetDefault("tika.server_url", "")
	v.SetDefault("tika.timeout_seconds", 60)

	v.SetDefault("analysis.max_chars", 12000)
	v.SetDefault("analysis.validation", "warn")
	v.SetDefault("analysis.scratch_dir", "data")
}
