package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	StatusPort int           `mapstructure:"status_port"`

	Backend  BackendConfig  `mapstructure:"backend"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	RTC      RTCConfig      `mapstructure:"rtc"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Session  SessionConfig  `mapstructure:"session"`
	Broker   BrokerConfig   `mapstructure:"broker"`
}

// BackendConfig points the client at the credential broker.
type BackendConfig struct {
	SessionURL string `mapstructure:"session_url"`
	Token      string `mapstructure:"token"`
}

type RealtimeConfig struct {
	URL        string `mapstructure:"url"`
	Model      string `mapstructure:"model"`
	BetaHeader string `mapstructure:"beta_header"`
}

type RTCConfig struct {
	ICEServers []string `mapstructure:"ice_servers"`
	// Codec is "pcmu" or "pcma".
	Codec string `mapstructure:"codec"`
}

type AudioConfig struct {
	FFTSize        int     `mapstructure:"fft_size"`
	Smoothing      float64 `mapstructure:"smoothing"`
	MinDecibels    float64 `mapstructure:"min_decibels"`
	MaxDecibels    float64 `mapstructure:"max_decibels"`
	Bins           int     `mapstructure:"bins"`
	Exponent       float64 `mapstructure:"exponent"`
	Gain           float64 `mapstructure:"gain"`
	SilenceEpsilon float64 `mapstructure:"silence_epsilon"`
	SilenceFrames  int     `mapstructure:"silence_frames"`
	FrameRate      int     `mapstructure:"frame_rate"`
}

// SessionConfig holds the per-run connect options of the client.
type SessionConfig struct {
	Model    string `mapstructure:"model"`
	Mic      bool   `mapstructure:"mic"`
	AudioOut bool   `mapstructure:"audio_out"`
}

type BrokerConfig struct {
	APIKey         string          `mapstructure:"api_key"`
	UpstreamURL    string          `mapstructure:"upstream_url"`
	Model          string          `mapstructure:"model"`
	Voice          string          `mapstructure:"voice"`
	Modalities     []string        `mapstructure:"modalities"`
	Instructions   string          `mapstructure:"instructions"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	JWTSecret      string          `mapstructure:"jwt_secret"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	Redis          RedisConfig     `mapstructure:"redis"`
}

type RateLimitConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

// RedisConfig enables the shared limiter when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ClientFlags declares the command line flags understood by the client.
func ClientFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
	fs.String("model", "", "requested realtime model")
	fs.Bool("mic", false, "send microphone audio")
	fs.Bool("audio-out", true, "receive model audio")
	fs.Int("status-port", 0, "status server port, 0 disables it")
	return fs
}

func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix("voicelink")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("broker.api_key", "OPENAI_API_KEY")

	if flags != nil {
		bindFlag(v, flags, "session.model", "model")
		bindFlag(v, flags, "session.mic", "mic")
		bindFlag(v, flags, "session.audio_out", "audio-out")
		bindFlag(v, flags, "status_port", "status-port")
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("model", cfg.Realtime.Model).Msg("config ready")
	return &cfg, nil
}

func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, name string) {
	if f := fs.Lookup(name); f != nil {
		_ = v.BindPFlag(key, f)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")

	v.SetDefault("backend.session_url", "http://localhost:8080/api/realtime/session")

	v.SetDefault("realtime.url", "https://api.openai.com/v1/realtime")
	v.SetDefault("realtime.model", "gpt-4o-realtime-preview-2024-12-17")
	v.SetDefault("realtime.beta_header", "realtime=v1")

	v.SetDefault("rtc.ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("rtc.codec", "pcmu")

	v.SetDefault("audio.fft_size", 256)
	v.SetDefault("audio.smoothing", 0.8)
	v.SetDefault("audio.min_decibels", -100.0)
	v.SetDefault("audio.max_decibels", -30.0)
	v.SetDefault("audio.bins", 20)
	v.SetDefault("audio.exponent", 0.5)
	v.SetDefault("audio.gain", 1.5)
	v.SetDefault("audio.silence_epsilon", 0.02)
	v.SetDefault("audio.silence_frames", 8)
	v.SetDefault("audio.frame_rate", 60)

	v.SetDefault("session.audio_out", true)

	v.SetDefault("broker.upstream_url", "https://api.openai.com/v1/realtime/sessions")
	v.SetDefault("broker.model", "gpt-4o-realtime-preview-2024-12-17")
	v.SetDefault("broker.voice", "verse")
	v.SetDefault("broker.modalities", []string{"text", "audio"})
	v.SetDefault("broker.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})
	v.SetDefault("broker.rate_limit.limit", 10)
	v.SetDefault("broker.rate_limit.interval", "1m")
}
