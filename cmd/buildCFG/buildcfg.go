package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

type QRConfig struct {
	AppID    string
	BasePath string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) *ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, using default 8080")
	}
	return &ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	host := cfg.GetString("database.host")
	port := cfg.GetString("database.port")
	user := cfg.GetString("database.user")
	password := cfg.GetString("database.password")
	name := cfg.GetString("database.name")
	sslMode := cfg.GetString("database.ssl_mode")

	if host == "" || user == "" || name == "" {
		return "", nil, nil, fmt.Errorf("database config incomplete: host=%q user=%q name=%q", host, user, name)
	}
	if port == "" {
		port = "5432"
	}
	if sslMode == "" {
		sslMode = "disable"
	}

	masterDSN := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, name, sslMode)

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("database.conn_max_lifetime"),
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}

	log.Info().Str("host", host).Str("db", name).Msg("database config built")
	return masterDSN, nil, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (*RabbitConfig, error) {
	url := cfg.GetString("rabbit.url")
	if url == "" {
		return nil, fmt.Errorf("rabbit.url is required")
	}

	exchange := cfg.GetString("rabbit.exchange")
	if exchange == "" {
		exchange = "notifications"
	}
	queue := cfg.GetString("rabbit.queue")
	if queue == "" {
		queue = "payment_notifications"
	}

	log.Info().Str("exchange", exchange).Str("queue", queue).Msg("rabbit config built")
	return &RabbitConfig{Url: url, Exchange: exchange, Queue: queue}, nil
}

func BuildRedisConfig(cfg *config.Config, log *zerolog.Logger) *RedisConfig {
	addr := cfg.GetString("redis.addr")
	if addr == "" {
		addr = "localhost:6379"
		log.Warn().Msg("redis.addr not set, using default localhost:6379")
	}
	return &RedisConfig{
		Addr:     addr,
		Password: cfg.GetString("redis.password"),
		DB:       cfg.GetInt("redis.db"),
	}
}

func BuildSessionConfig(cfg *config.Config) *SessionConfig {
	name := cfg.GetString("session.cookie_name")
	if name == "" {
		name = "session_token"
	}
	ttl := cfg.GetDuration("session.ttl")
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &SessionConfig{CookieName: name, TTL: ttl}
}

func BuildSMTPConfig(cfg *config.Config) *SMTPConfig {
	port := cfg.GetInt("smtp.port")
	if port == 0 {
		port = 587
	}
	return &SMTPConfig{
		Host:     cfg.GetString("smtp.host"),
		Port:     port,
		From:     cfg.GetString("smtp.from"),
		Password: cfg.GetString("smtp.password"),
	}
}

func BuildQRConfig(cfg *config.Config) *QRConfig {
	appID := cfg.GetString("qr.app_id")
	if appID == "" {
		appID = "TikoZetu"
	}
	basePath := cfg.GetString("qr.base_path")
	if basePath == "" {
		basePath = "."
	}
	return &QRConfig{AppID: appID, BasePath: basePath}
}
