package configuration

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"multipost/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `mapstructure:"app"`
	Auth        Auth        `mapstructure:"auth"`
	Upload      Upload      `mapstructure:"upload"`
	Storage     Storage     `mapstructure:"storage"`
	Database    Database    `mapstructure:"database"`
	RedisClient RedisClient `mapstructure:"redisClient"`
	Pubsub      Pubsub      `mapstructure:"pubsub"`
	ServiceBus  ServiceBus  `mapstructure:"serviceBus"`
	Logger      Logger      `mapstructure:"logger"`
	YouTube     YouTube     `mapstructure:"youtube"`
	Instagram   Instagram   `mapstructure:"instagram"`
	TikTok      TikTok      `mapstructure:"tiktok"`
	Cloudinary  Cloudinary  `mapstructure:"cloudinary"`
	S3          S3          `mapstructure:"s3"`
}

type App struct {
	Env         string `mapstructure:"env"`
	Port        int    `mapstructure:"port"`
	SecretKey   string `mapstructure:"secretKey"`
	TLSEnabled  bool   `mapstructure:"tlsEnabled"`
	TLSCertFile string `mapstructure:"tlsCertFile"`
	TLSKeyFile  string `mapstructure:"tlsKeyFile"`
	FrontendURL string `mapstructure:"frontendURL"`
}

type Auth struct {
	UsersFile       string        `mapstructure:"usersFile"`
	DefaultPassword string        `mapstructure:"defaultPassword"`
	SessionTTL      time.Duration `mapstructure:"sessionTTL"`
	CookieName      string        `mapstructure:"cookieName"`
	// LoginPerMinute bounds login attempts per client address.
	LoginPerMinute int `mapstructure:"loginPerMinute"`
}

type Upload struct {
	TmpDir    string `mapstructure:"tmpDir"`
	MaxSizeMB int64  `mapstructure:"maxSizeMB"`
}

// Storage selects the credential and history backends.
type Storage struct {
	CredentialStore string `mapstructure:"credentialStore"` // file | redis | postgres | mssql
	HistoryStore    string `mapstructure:"historyStore"`    // file | redis | mongo
	TokensDir       string `mapstructure:"tokensDir"`
	HistoryFile     string `mapstructure:"historyFile"`
	HistoryMaxItems int    `mapstructure:"historyMaxItems"`
}

type Database struct {
	Psql  Db    `mapstructure:"psql"`
	Mssql Db    `mapstructure:"mssql"`
	Mongo Mongo `mapstructure:"mongo"`
}

type Db struct {
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslMode"`
}

type Mongo struct {
	URI        string `mapstructure:"uri"`
	Name       string `mapstructure:"name"`
	Collection string `mapstructure:"collection"`
}

type RedisClient struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	Username  string `mapstructure:"username"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

type Pubsub struct {
	ProjectID string `mapstructure:"projectID"`
	TopicID   string `mapstructure:"topicID"`
}

type ServiceBus struct {
	Namespace string `mapstructure:"namespace"`
	Queue     string `mapstructure:"queue"`
}

type Logger struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type YouTube struct {
	ClientID     string `mapstructure:"clientId"`
	ClientSecret string `mapstructure:"clientSecret"`
	RedirectURI  string `mapstructure:"redirectURI"`
	RefreshToken string `mapstructure:"refreshToken"`
	// TokenURL and APIEndpoint override Google endpoints (tests, proxies).
	TokenURL    string `mapstructure:"tokenURL"`
	APIEndpoint string `mapstructure:"apiEndpoint"`
}

type Instagram struct {
	AppID           string        `mapstructure:"appId"`
	AppSecret       string        `mapstructure:"appSecret"`
	RedirectURI     string        `mapstructure:"redirectURI"`
	PageAccessToken string        `mapstructure:"pageAccessToken"`
	UserID          string        `mapstructure:"userId"`
	GraphBaseURL    string        `mapstructure:"graphBaseURL"`
	DialogURL       string        `mapstructure:"dialogURL"`
	MediaHost       string        `mapstructure:"mediaHost"` // cloudinary | s3
	VideoMediaType  string        `mapstructure:"videoMediaType"`
	PollInterval    time.Duration `mapstructure:"pollInterval"`
	PollAttempts    int           `mapstructure:"pollAttempts"`
}

type TikTok struct {
	ClientKey      string `mapstructure:"clientKey"`
	ClientSecret   string `mapstructure:"clientSecret"`
	RefreshToken   string `mapstructure:"refreshToken"`
	RedirectURI    string `mapstructure:"redirectURI"`
	DefaultPrivacy string `mapstructure:"defaultPrivacy"`
	BaseURL        string `mapstructure:"baseURL"`
}

type Cloudinary struct {
	CloudName    string `mapstructure:"cloudName"`
	APIKey       string `mapstructure:"apiKey"`
	APISecret    string `mapstructure:"apiSecret"`
	UploadFolder string `mapstructure:"uploadFolder"`
	UploadPrefix string `mapstructure:"uploadPrefix"`
}

type S3 struct {
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	Prefix        string        `mapstructure:"prefix"`
	AccessKey     string        `mapstructure:"accessKey"`
	SecretKey     string        `mapstructure:"secretKey"`
	PublicBaseURL string        `mapstructure:"publicBaseURL"`
	PresignTTL    time.Duration `mapstructure:"presignTTL"`
	// Endpoint targets S3-compatible storage (MinIO, R2) with path-style URLs.
	Endpoint string `mapstructure:"endpoint"`
}

// envBindings maps config keys to the environment variables operators set.
var envBindings = map[string][]string{
	"app.env":         {"ENV"},
	"app.port":        {"APP_PORT", "PORT"},
	"app.secretKey":   {"SECRET_KEY"},
	"app.tlsEnabled":  {"TLS_ENABLED"},
	"app.tlsCertFile": {"TLS_CERT_FILE"},
	"app.tlsKeyFile":  {"TLS_KEY_FILE"},
	"app.frontendURL": {"FRONTEND_URL"},

	"auth.usersFile":       {"USERS_FILE"},
	"auth.defaultPassword": {"DEFAULT_PASSWORD"},
	"auth.sessionTTL":      {"SESSION_TTL"},
	"auth.loginPerMinute":  {"LOGIN_PER_MINUTE"},

	"upload.tmpDir":    {"TMP_DIR"},
	"upload.maxSizeMB": {"MAX_UPLOAD_SIZE_MB"},

	"storage.credentialStore": {"CREDENTIAL_STORE"},
	"storage.historyStore":    {"HISTORY_STORE"},
	"storage.tokensDir":       {"TOKENS_DIR"},
	"storage.historyFile":     {"HISTORY_FILE"},
	"storage.historyMaxItems": {"HISTORY_MAX_ITEMS"},

	"database.psql.host":        {"DB_HOST"},
	"database.psql.port":        {"DB_PORT"},
	"database.psql.user":        {"DB_USER"},
	"database.psql.password":    {"DB_PASSWORD"},
	"database.psql.name":        {"DB_NAME"},
	"database.psql.sslMode":     {"DB_SSLMODE"},
	"database.mssql.host":       {"MSSQL_HOST"},
	"database.mssql.port":       {"MSSQL_PORT"},
	"database.mssql.user":       {"MSSQL_USER"},
	"database.mssql.password":   {"MSSQL_PASSWORD"},
	"database.mssql.name":       {"MSSQL_DB_NAME"},
	"database.mongo.uri":        {"MONGO_URI"},
	"database.mongo.name":       {"MONGO_DB"},
	"database.mongo.collection": {"MONGO_HISTORY_COLLECTION"},

	"redisClient.host":      {"REDIS_HOST"},
	"redisClient.port":      {"REDIS_PORT"},
	"redisClient.password":  {"REDIS_PASSWORD"},
	"redisClient.username":  {"REDIS_USERNAME"},
	"redisClient.db":        {"REDIS_DB"},
	"redisClient.keyPrefix": {"REDIS_KEY_PREFIX"},

	"pubsub.projectID":     {"PUBSUB_PROJECT_ID"},
	"pubsub.topicID":       {"PUBSUB_TOPIC"},
	"serviceBus.namespace": {"SERVICEBUS_NAMESPACE"},
	"serviceBus.queue":     {"SERVICEBUS_QUEUE"},

	"logger.format": {"LOG_FORMAT"},
	"logger.level":  {"LOG_LEVEL"},

	"youtube.clientId":     {"YT_CLIENT_ID"},
	"youtube.clientSecret": {"YT_CLIENT_SECRET"},
	"youtube.redirectURI":  {"YT_REDIRECT_URI"},
	"youtube.refreshToken": {"YT_REFRESH_TOKEN"},
	"youtube.tokenURL":     {"YT_TOKEN_URL"},
	"youtube.apiEndpoint":  {"YT_API_ENDPOINT"},

	"instagram.appId":           {"FB_APP_ID"},
	"instagram.appSecret":       {"FB_APP_SECRET"},
	"instagram.redirectURI":     {"FB_REDIRECT_URI"},
	"instagram.pageAccessToken": {"FB_PAGE_ACCESS_TOKEN"},
	"instagram.userId":          {"IG_USER_ID"},
	"instagram.graphBaseURL":    {"FB_GRAPH_BASE_URL"},
	"instagram.mediaHost":       {"IG_MEDIA_HOST"},
	"instagram.videoMediaType":  {"IG_VIDEO_MEDIA_TYPE"},
	"instagram.pollInterval":    {"IG_POLL_INTERVAL"},
	"instagram.pollAttempts":    {"IG_POLL_ATTEMPTS"},

	"tiktok.clientKey":      {"TT_CLIENT_KEY"},
	"tiktok.clientSecret":   {"TT_CLIENT_SECRET"},
	"tiktok.refreshToken":   {"TT_REFRESH_TOKEN"},
	"tiktok.redirectURI":    {"TT_REDIRECT_URI"},
	"tiktok.defaultPrivacy": {"TT_DEFAULT_PRIVACY"},
	"tiktok.baseURL":        {"TT_API_BASE"},

	"cloudinary.cloudName":    {"CLOUDINARY_CLOUD_NAME"},
	"cloudinary.apiKey":       {"CLOUDINARY_API_KEY"},
	"cloudinary.apiSecret":    {"CLOUDINARY_API_SECRET"},
	"cloudinary.uploadFolder": {"CLOUDINARY_UPLOAD_FOLDER"},
	"cloudinary.uploadPrefix": {"CLOUDINARY_UPLOAD_PREFIX"},

	"s3.region":        {"S3_REGION"},
	"s3.bucket":        {"S3_BUCKET"},
	"s3.prefix":        {"S3_PREFIX"},
	"s3.accessKey":     {"S3_ACCESS_KEY"},
	"s3.secretKey":     {"S3_SECRET_KEY"},
	"s3.publicBaseURL": {"S3_PUBLIC_BASE_URL"},
	"s3.presignTTL":    {"S3_PRESIGN_TTL"},
	"s3.endpoint":      {"S3_ENDPOINT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 4000)
	v.SetDefault("app.frontendURL", "http://localhost:5173")

	v.SetDefault("auth.usersFile", "storage/users.json")
	v.SetDefault("auth.defaultPassword", "admin123")
	v.SetDefault("auth.sessionTTL", 24*time.Hour)
	v.SetDefault("auth.cookieName", "multipost_session")
	v.SetDefault("auth.loginPerMinute", 10)

	v.SetDefault("upload.tmpDir", "tmp")
	v.SetDefault("upload.maxSizeMB", 512)

	v.SetDefault("storage.credentialStore", "file")
	v.SetDefault("storage.historyStore", "file")
	v.SetDefault("storage.tokensDir", "tokens")
	v.SetDefault("storage.historyFile", "storage/history.json")
	v.SetDefault("storage.historyMaxItems", 100)

	v.SetDefault("database.psql.port", "5432")
	v.SetDefault("database.psql.sslMode", "disable")
	v.SetDefault("database.mssql.port", "1433")
	v.SetDefault("database.mongo.name", "multipost")
	v.SetDefault("database.mongo.collection", "history")

	v.SetDefault("redisClient.host", "localhost")
	v.SetDefault("redisClient.port", "6379")
	v.SetDefault("redisClient.keyPrefix", "multipost")

	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.level", "debug")

	v.SetDefault("youtube.redirectURI", "http://localhost:4000/oauth2callback")

	v.SetDefault("instagram.redirectURI", "http://localhost:4000/auth/instagram/callback")
	v.SetDefault("instagram.graphBaseURL", "https://graph.facebook.com/v19.0")
	v.SetDefault("instagram.dialogURL", "https://www.facebook.com/v19.0/dialog/oauth")
	v.SetDefault("instagram.mediaHost", "cloudinary")
	v.SetDefault("instagram.videoMediaType", "VIDEO")
	v.SetDefault("instagram.pollInterval", 3*time.Second)
	v.SetDefault("instagram.pollAttempts", 20)

	v.SetDefault("tiktok.redirectURI", "http://localhost:4000/tiktok/callback")
	v.SetDefault("tiktok.defaultPrivacy", "PUBLIC_TO_EVERYONE")
	v.SetDefault("tiktok.baseURL", "https://open-api.tiktok.com")

	v.SetDefault("cloudinary.uploadFolder", "multipost")

	v.SetDefault("s3.presignTTL", time.Hour)
}

// Load builds the application configuration from config-<ENV>.json (if any),
// .env files and the process environment. Environment wins over files.
func Load() (*Config, error) {
	LoadEnvFromFile("config.env", ".env")

	v := viper.New()
	v.SetConfigName(getConfig())
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("../../")
	setDefaults(v)
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.GetLogger().Warn("Config file not found, using environment only")
		} else {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	initApp(&c)

	logger.GetLogger().WithFields(map[string]interface{}{
		"config":          getConfig(),
		"credentialStore": c.Storage.CredentialStore,
		"historyStore":    c.Storage.HistoryStore,
		"mediaHost":       c.Instagram.MediaHost,
	}).Info("Config set up successfully")
	return &c, nil
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(c *Config) {
	if c.App.Port == 0 {
		c.App.Port = 4000
	}
	if c.Storage.HistoryMaxItems <= 0 {
		c.Storage.HistoryMaxItems = 100
	}
	if c.Upload.MaxSizeMB <= 0 {
		c.Upload.MaxSizeMB = 512
	}
	c.Storage.CredentialStore = strings.ToLower(c.Storage.CredentialStore)
	c.Storage.HistoryStore = strings.ToLower(c.Storage.HistoryStore)
	c.Instagram.MediaHost = strings.ToLower(c.Instagram.MediaHost)

	// Prefer local certs if TLS enabled and paths not provided
	if c.App.TLSEnabled {
		if c.App.TLSCertFile == "" {
			if _, err := os.Stat("certs/localhost.crt"); err == nil {
				c.App.TLSCertFile = "certs/localhost.crt"
			}
		}
		if c.App.TLSKeyFile == "" {
			if _, err := os.Stat("certs/localhost.key"); err == nil {
				c.App.TLSKeyFile = "certs/localhost.key"
			}
		}
		if c.YouTube.RedirectURI != "" && !hasHTTPS(c.YouTube.RedirectURI) {
			c.YouTube.RedirectURI = toHTTPSCallback(c.YouTube.RedirectURI)
		}
		if c.Instagram.RedirectURI != "" && !hasHTTPS(c.Instagram.RedirectURI) {
			c.Instagram.RedirectURI = toHTTPSCallback(c.Instagram.RedirectURI)
		}
	}
	if c.App.SecretKey == "" {
		c.App.SecretKey = "multipost-secret-key-change-in-production"
		logger.GetLogger().Warn("App.SecretKey not set; using the development default. Provide SECRET_KEY via environment.")
	}
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }
func toHTTPSCallback(u string) string {
	// simple swap for localhost callbacks
	if strings.HasPrefix(u, "http://") {
		return "https://" + u[len("http://"):]
	}
	return u
}
