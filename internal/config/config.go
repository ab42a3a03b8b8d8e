package config

import (
	"fmt"
	"os"
	"strings"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // 外部IDプロバイダと共有するJWT署名シークレット

	RedisAddr    string   // カタログキャッシュ用
	KafkaBrokers []string // 注文イベント用
	ServiceName  string   // イベントのproducer名

	GoEnv string // dev/prod
}

// Loadは環境変数から読む。DB接続はinfra/dbが環境変数を直接見る。
func Load() (Config, error) {
	cfg := Config{
		Port:      os.Getenv("PORT"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		ServiceName:  getenv("SERVICE_NAME", "marketplace-api"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
