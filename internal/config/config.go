package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	apperrors "metatags-backend/pkg/errors"

	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai"
	ProviderDoubao = "doubao"
	ProviderQwen   = "qwen"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Model      ModelConfig      `mapstructure:"model"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Doubao     DoubaoConfig     `mapstructure:"doubao"`
	Qwen       QwenConfig       `mapstructure:"qwen"`
	Generation GenerationConfig `mapstructure:"generation"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Composer   ComposerConfig   `mapstructure:"composer"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
}

type OpenAIConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type DoubaoConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

// GenerationConfig 上游调用的固定采样参数
type GenerationConfig struct {
	SystemPrompt     string        `mapstructure:"system_prompt"`
	Temperature      float32       `mapstructure:"temperature"`
	TopP             float32       `mapstructure:"top_p"`
	FrequencyPenalty float32       `mapstructure:"frequency_penalty"`
	PresencePenalty  float32       `mapstructure:"presence_penalty"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	N                int           `mapstructure:"n"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// ComposerConfig 客户端（cmd/generate）使用
type ComposerConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultSystemPrompt 要求模型只输出 SEO meta 标签 HTML 片段
const DefaultSystemPrompt = "I want you to act as a SEO optimized html meta tags generator. " +
	"I will tell you what my company or idea does and you will tell me SEO optimized meta tags " +
	"for the website in the form of a html. Make sure to display only code, further explanations are not needed."

// Load 读取配置：默认值 -> 配置文件（可缺省） -> 环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("METATAGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !stderrors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 配置文件优先，未设置时回退到常用的环境变量
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Doubao.APIKey == "" {
		if apiKey := os.Getenv("DOUBAO_API_KEY"); apiKey != "" {
			c.Doubao.APIKey = apiKey
		}
		if apiKey := os.Getenv("ARK_API_KEY"); apiKey != "" {
			c.Doubao.APIKey = apiKey
		}
	}
	if c.Qwen.APIKey == "" {
		c.Qwen.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}

	return c, nil
}

// Validate 启动时校验，缺少上游凭据返回 ConfigurationError
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderDoubao, ProviderQwen:
	default:
		return apperrors.Configuration(fmt.Sprintf("unsupported model provider %q", c.Model.Provider))
	}

	if c.APIKey() == "" {
		return apperrors.Configuration(fmt.Sprintf("missing API key for provider %q", c.Model.Provider))
	}
	if c.Generation.MaxTokens <= 0 {
		return apperrors.Configuration("generation.max_tokens must be positive")
	}
	return nil
}

// APIKey 返回当前 provider 的凭据
func (c *Config) APIKey() string {
	switch c.Model.Provider {
	case ProviderDoubao:
		return c.Doubao.APIKey
	case ProviderQwen:
		return c.Qwen.APIKey
	default:
		return c.OpenAI.APIKey
	}
}

// ModelName 返回当前 provider 的模型名
func (c *Config) ModelName() string {
	switch c.Model.Provider {
	case ProviderDoubao:
		return c.Doubao.Model
	case ProviderQwen:
		return c.Qwen.Model
	default:
		return c.OpenAI.Model
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("model.provider", ProviderOpenAI)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.timeout", "90s")
	v.SetDefault("openai.debug_request", false)

	v.SetDefault("doubao.api_key", "")
	v.SetDefault("doubao.model", "")

	v.SetDefault("qwen.api_key", "")
	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.timeout", "90s")
	v.SetDefault("qwen.debug_request", false)

	v.SetDefault("generation.system_prompt", DefaultSystemPrompt)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.top_p", 1.0)
	v.SetDefault("generation.frequency_penalty", 0.0)
	v.SetDefault("generation.presence_penalty", 0.0)
	v.SetDefault("generation.max_tokens", 200)
	v.SetDefault("generation.n", 1)
	v.SetDefault("generation.timeout", "60s")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "metatags-backend")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("composer.endpoint", "http://localhost:8080/api/generate")
	v.SetDefault("composer.timeout", "90s")
}
