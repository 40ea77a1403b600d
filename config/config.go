package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL        string  `yaml:"url" mapstructure:"url"`
	Token      string  `yaml:"token,omitempty" mapstructure:"token"`
	Timeout    int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

type Services struct {
	ASR        Service `yaml:"asr" mapstructure:"asr"`
	Translate  Service `yaml:"translate" mapstructure:"translate"`
	TTS        Service `yaml:"tts" mapstructure:"tts"`
	YouTube    Service `yaml:"youtube" mapstructure:"youtube"`
	Transcript Service `yaml:"transcript" mapstructure:"transcript"`
	QA         Service `yaml:"qa" mapstructure:"qa"`
	Thesaurus  Service `yaml:"thesaurus" mapstructure:"thesaurus"`
	Wikipedia  Service `yaml:"wikipedia" mapstructure:"wikipedia"`
}

type Audio struct {
	FFmpeg      string `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	SampleRate  int    `yaml:"sample_rate" mapstructure:"sample_rate"`
	MaxSpeakers int    `yaml:"max_speakers" mapstructure:"max_speakers"`
	NMFCC       int    `yaml:"n_mfcc" mapstructure:"n_mfcc"`
}

type Server struct {
	Addr            string `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     int    `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    int    `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxUploadMB     int64  `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

type Session struct {
	Store         string `yaml:"store" mapstructure:"store"` // memory | redis
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTL           int    `yaml:"ttl" mapstructure:"ttl"` // seconds
	Cookie        string `yaml:"cookie" mapstructure:"cookie"`
}

type Paths struct {
	Progress string `yaml:"progress" mapstructure:"progress"`
	Temp     string `yaml:"temp" mapstructure:"temp"`
	Outputs  string `yaml:"outputs" mapstructure:"outputs"`
}

type App struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Version   string `yaml:"version" mapstructure:"version"`
	LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`
}

type Root struct {
	App      App      `yaml:"app" mapstructure:"app"`
	Server   Server   `yaml:"server" mapstructure:"server"`
	Services Services `yaml:"services" mapstructure:"services"`
	Audio    Audio    `yaml:"audio" mapstructure:"audio"`
	Session  Session  `yaml:"session" mapstructure:"session"`
	Paths    Paths    `yaml:"paths" mapstructure:"paths"`
}

const envPrefix = "VOICEVISION"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "voice-vision")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("server.addr", ":8501")
	v.SetDefault("server.read_timeout", 60)
	v.SetDefault("server.write_timeout", 300)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.shutdown_timeout", 15)
	v.SetDefault("server.max_upload_mb", 200)

	v.SetDefault("services.asr.url", "http://localhost:9000")
	v.SetDefault("services.asr.timeout", 300)
	v.SetDefault("services.translate.url", "http://localhost:5000")
	v.SetDefault("services.translate.timeout", 30)
	v.SetDefault("services.translate.rate_per_sec", 5)
	v.SetDefault("services.tts.url", "https://translate.google.com")
	v.SetDefault("services.tts.timeout", 30)
	v.SetDefault("services.tts.rate_per_sec", 5)
	v.SetDefault("services.youtube.url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("services.youtube.timeout", 15)
	v.SetDefault("services.transcript.url", "https://www.youtube.com")
	v.SetDefault("services.transcript.timeout", 15)
	v.SetDefault("services.qa.url", "https://api-inference.huggingface.co/models/HuggingFaceH4/zephyr-7b-beta")
	v.SetDefault("services.qa.timeout", 120)
	v.SetDefault("services.qa.rate_per_sec", 1)
	v.SetDefault("services.thesaurus.url", "https://api.datamuse.com")
	v.SetDefault("services.thesaurus.timeout", 5)
	v.SetDefault("services.wikipedia.url", "https://en.wikipedia.org/api/rest_v1")
	v.SetDefault("services.wikipedia.timeout", 10)

	// tokens need a registered key for env overrides to reach Unmarshal
	for _, svc := range []string{"asr", "translate", "tts", "youtube", "transcript", "qa", "thesaurus", "wikipedia"} {
		v.SetDefault("services."+svc+".token", "")
	}
	v.SetDefault("session.redis_password", "")

	v.SetDefault("audio.ffmpeg", "ffmpeg")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.max_speakers", 8)
	v.SetDefault("audio.n_mfcc", 13)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_db", 0)
	v.SetDefault("session.ttl", 86400)
	v.SetDefault("session.cookie", "vv_session")

	v.SetDefault("paths.progress", "user_progress")
	v.SetDefault("paths.temp", os.TempDir())
	v.SetDefault("paths.outputs", "output")
}

// guessPaths keeps the lookup order used when no explicit file is given.
func guessPaths() []string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
}

// Load reads the configuration from path, or from the first guessed location
// that exists when path is empty. Environment variables prefixed with
// VOICEVISION_ override file values.
func Load(path string) (*Root, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		for _, p := range guessPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Root {
	v := viper.New()
	setDefaults(v)
	var cfg Root
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func (r *Root) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if r.Server.ReadTimeout <= 0 || r.Server.WriteTimeout <= 0 || r.Server.IdleTimeout <= 0 || r.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if r.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("server.max_upload_mb must be positive"))
	}
	switch r.Session.Store {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown session.store %q", r.Session.Store))
	}
	if r.Audio.MaxSpeakers < 1 {
		errs = append(errs, errors.New("audio.max_speakers must be at least 1"))
	}
	if r.Audio.NMFCC < 1 {
		errs = append(errs, errors.New("audio.n_mfcc must be at least 1"))
	}
	return errors.Join(errs...)
}

const masked = "********"

// Redacted returns a copy with service tokens and the redis password
// replaced by a mask.
func (r *Root) Redacted() *Root {
	c := *r
	for _, s := range []*Service{
		&c.Services.ASR, &c.Services.Translate, &c.Services.TTS, &c.Services.YouTube,
		&c.Services.Transcript, &c.Services.QA, &c.Services.Thesaurus, &c.Services.Wikipedia,
	} {
		if s.Token != "" {
			s.Token = masked
		}
	}
	if c.Session.RedisPassword != "" {
		c.Session.RedisPassword = masked
	}
	return &c
}

// Dump writes the configuration as YAML with secrets masked.
func (r *Root) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(r.Redacted())
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
