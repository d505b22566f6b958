package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "LEARNHUB"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout"`
	SessionRefresh time.Duration `mapstructure:"session_refresh" json:"session_refresh" yaml:"session_refresh"` // session refresh threshold
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"` // abort request after
	Database       struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"required,oneof=postgres"`        // driver name
		Host     string `mapstructure:"host" json:"host" yaml:"host" validate:"required"`                            // server host
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn" validate:"min=1"`                      // maximum opening connections number
		Password string `mapstructure:"password" json:"-" yaml:"password" validate:"required"`                       // db password
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                // server port
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                             // DSN query parameter
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema" validate:"required"`                      // use schema
		User     string `mapstructure:"username" json:"username" yaml:"username" validate:"required"`                // db username
	} `mapstructure:"database" json:"database" yaml:"database"`
	Logging struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength         int           `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated session and object IDs
		JWTMethod        string        `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS512"`
		JWTSecret        string        `mapstructure:"jwt_secret" json:"-" yaml:"jwt_secret" validate:"required"`
		TokenName        string        `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"`     // jwt token name set in cookie
		MaxLoginAttempts int           `mapstructure:"max_login_attempts" json:"max_login_attempts" yaml:"max_login_attempts"` // maximum login attempts
		RetryTimeout     time.Duration `mapstructure:"retry_timeout" json:"retry_timeout" yaml:"retry_timeout"`                // retry wait
		AllowOrigins     []string      `mapstructure:"allow_origins" json:"allow_origins" yaml:"allow_origins"`
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Host     string `mapstructure:"host" json:"host" yaml:"host"`                           // bind host address
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                           // bind listen port
		Password string `mapstructure:"password" json:"-" yaml:"password" validate:"required"` // password for security reasons
		DB       int    `mapstructure:"db" json:"db" yaml:"db"`
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	Cache struct {
		TTL       time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`                   // query cache lifetime
		RoleTTL   time.Duration `mapstructure:"role_ttl" json:"role_ttl" yaml:"role_ttl"`    // role cache lifetime
		StoreIdle time.Duration `mapstructure:"store_idle" json:"store_idle" yaml:"store_idle"` // completion store lifetime
	} `mapstructure:"cache" json:"cache" yaml:"cache"`
	Storage struct {
		Enabled         bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
		CredentialsFile string `mapstructure:"credentials_file" json:"credentials_file" yaml:"credentials_file"`
		CDNDomain       string `mapstructure:"cdn_domain" json:"cdn_domain" yaml:"cdn_domain"`
		MaxUploadBytes  int64  `mapstructure:"max_upload_bytes" json:"max_upload_bytes" yaml:"max_upload_bytes"`
	} `mapstructure:"storage" json:"storage" yaml:"storage"`
	Mail struct {
		SendGridKey string `mapstructure:"sendgrid_key" json:"-" yaml:"sendgrid_key"`
		FromName    string `mapstructure:"from_name" json:"from_name" yaml:"from_name"`
		FromEmail   string `mapstructure:"from_email" json:"from_email" yaml:"from_email" validate:"omitempty,email"`
		LinkBase    string `mapstructure:"link_base" json:"link_base" yaml:"link_base" validate:"omitempty,url"` // prefix of links in mails
	} `mapstructure:"mail" json:"mail" yaml:"mail"`
	ImageGen struct {
		BaseURL string        `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"omitempty,url"`
		APIKey  string        `mapstructure:"api_key" json:"-" yaml:"api_key"`
		Model   string        `mapstructure:"model" json:"model" yaml:"model"`
		Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	} `mapstructure:"imagegen" json:"imagegen" yaml:"imagegen"`
	DevOP struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// RegisterFlags declares every command line flag on fs
func RegisterFlags(fs *pflag.FlagSet) {
	// app
	fs.String("host", "", "binding address")
	fs.String("app_id", "", "application identifier (required)")
	fs.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	fs.Int("port", 8081, "listening port")
	fs.Duration("session_timeout", 2*time.Hour, "JWT lifetime(m, s and h units are supported), eg.30m")
	fs.Duration("session_refresh", 5*time.Minute, "session refresh threshold(m, s and h units are supported), eg.5m")
	fs.Duration("request_timeout", 30*time.Second, "abort requests running longer than this")

	// database
	fs.String("database.driver", "postgres", "database driver to use, only postgres is supported")
	fs.String("database.host", "127.0.0.1", "database host")
	fs.Int("database.port", 5432, "database server port")
	fs.String("database.username", "", "database username (required)")
	fs.String("database.password", "", "database password (required)")
	fs.String("database.schema", "", "database schema (required)")
	fs.String("database.query", "", `additional DSN query parameters('?' is auto prefixed), eg."sslmode=disable"`)
	fs.Int32("database.maxconn", 50, "max connection count")

	// logging
	fs.String("logging.level", "info", "logging level")
	fs.String("logging.file_path", "", "log to file")

	// security
	fs.Int("security.id_length", 24, "set length of generated session and object IDs")
	fs.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	fs.String("security.jwt_secret", "", "JWT secret (required)")
	fs.String("security.token_name", "learnhub_token", "cookie name to store the token")
	fs.Int("security.max_login_attempts", 5, "maximum login attempts")
	fs.Duration("security.retry_timeout", 1*time.Hour, "retry wait")
	fs.StringSlice("security.allow_origins", []string{"*"}, "CORS allowed origins")

	// kv storage
	fs.String("kv.host", "127.0.0.1", "kv host")
	fs.Int("kv.port", 6379, "kv server port")
	fs.String("kv.password", "", "kv server password (required)")
	fs.Int("kv.db", 0, "kv database index")

	// cache
	fs.Duration("cache.ttl", 5*time.Minute, "query cache lifetime")
	fs.Duration("cache.role_ttl", 2*time.Hour, "cached user role lifetime")
	fs.Duration("cache.store_idle", 30*time.Minute, "in-memory completion store lifetime")

	// media storage
	fs.Bool("storage.enabled", false, "enable GCS backed media storage")
	fs.String("storage.credentials_file", "", "service account json for GCS")
	fs.String("storage.cdn_domain", "", "domain used to build public media URLs")
	fs.Int64("storage.max_upload_bytes", 50<<20, "maximum accepted upload size")

	// mail
	fs.String("mail.sendgrid_key", "", "SendGrid API key, notification mails are disabled when empty")
	fs.String("mail.from_name", "Learnhub", "notification sender name")
	fs.String("mail.from_email", "", "notification sender address")
	fs.String("mail.link_base", "", "frontend url prepended to notification links")

	// image generation
	fs.String("imagegen.base_url", "https://api.openai.com", "image generation API base url")
	fs.String("imagegen.api_key", "", "image generation API key")
	fs.String("imagegen.model", "dall-e-3", "image generation model")
	fs.Duration("imagegen.timeout", 60*time.Second, "image generation request timeout")

	// DevOp
	fs.Bool("devop.apm", false, "enable apm metrics")
}

// InitConfig init app config using viper
func InitConfig() (*AppConfig, error) {
	RegisterFlags(pflag.CommandLine)
	pflag.Parse()
	return LoadConfig(viper.GetViper(), pflag.CommandLine)
}

// LoadConfig binds fs and the environment into v, then decodes and validates the result
func LoadConfig(v *viper.Viper, fs *pflag.FlagSet) (*AppConfig, error) {
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config = new(AppConfig)
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

func validateConfig(config *AppConfig) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("mapstructure")
		if name == "-" || name == "" {
			name = fld.Tag.Get("yaml")
			if name == "-" || name == "" {
				return ""
			}
		}
		return name
	})
	err := validate.Struct(config)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	if err == nil {
		return nil
	}

	var msg []string
	for _, field := range err.(validator.ValidationErrors) {
		namespace := field.Namespace()
		fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
		switch field.Tag() {
		case "required":
			msg = append(msg, fmt.Sprintf("%s is required", fieldName))
		case "oneof":
			msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
		case "min":
			msg = append(msg, fmt.Sprintf("%s must be at least %s", fieldName, field.Param()))
		default:
			msg = append(msg, fmt.Sprintf("%s is invalid (%s)", fieldName, field.Tag()))
		}
	}
	return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
}
