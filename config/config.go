package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Model    ModelConfig    `mapstructure:"model"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize int64  `mapstructure:"max_size"`
	TempDir string `mapstructure:"temp_dir"`
}

type ModelConfig struct {
	UNetPath      string `mapstructure:"unet_path"`
	DeepLabPath   string `mapstructure:"deeplab_path"`
	SharedLibrary string `mapstructure:"shared_library"`
	ImageSize     int    `mapstructure:"image_size"`
	NumClasses    int    `mapstructure:"num_classes"`
}

// WorkflowConfig configures the external aerial detection workflow.
// The API key has no built-in default: it must come from the config
// file or the ROBOFLOW_API_KEY environment variable.
type WorkflowConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	APIKey     string        `mapstructure:"api_key"`
	Workspace  string        `mapstructure:"workspace"`
	WorkflowID string        `mapstructure:"workflow_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.BindEnv("workflow.api_key", "ROBOFLOW_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Unmarshal skips env-only keys that have no default, and the API
	// key deliberately has none.
	if cfg.Workflow.APIKey == "" {
		cfg.Workflow.APIKey = v.GetString("workflow.api_key")
	}

	return &cfg, nil
}

// New loads configuration from the default path, falling back to
// built-in defaults when no config file is present.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.temp_dir", "./tmp")

	v.SetDefault("model.unet_path", "./models/unet.onnx")
	v.SetDefault("model.deeplab_path", "./models/deeplab.onnx")
	v.SetDefault("model.shared_library", "")
	v.SetDefault("model.image_size", 256)
	v.SetDefault("model.num_classes", 5)

	v.SetDefault("workflow.api_url", "https://serverless.roboflow.com")
	v.SetDefault("workflow.workspace", "oil-spill-detection")
	v.SetDefault("workflow.workflow_id", "detect-and-classify")
	v.SetDefault("workflow.timeout", 60*time.Second)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8000",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize: 10 * 1024 * 1024,
			TempDir: "./tmp",
		},
		Model: ModelConfig{
			UNetPath:    "./models/unet.onnx",
			DeepLabPath: "./models/deeplab.onnx",
			ImageSize:   256,
			NumClasses:  5,
		},
		Workflow: WorkflowConfig{
			APIURL:     "https://serverless.roboflow.com",
			APIKey:     os.Getenv("ROBOFLOW_API_KEY"),
			Workspace:  "oil-spill-detection",
			WorkflowID: "detect-and-classify",
			Timeout:    60 * time.Second,
		},
	}
}
