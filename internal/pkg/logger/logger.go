package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New 创建一个带服务名的根 logger。所有组件的 logger 都从这里派生，
// 保证每条日志都能定位到所属服务。
func New(serviceName, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
