package logging

import (
	"time"

	"go.uber.org/zap"
)

// Typed field constructors so call sites do not import zap directly.

func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

func Error(val error) zap.Field {
	return zap.Error(val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Int8(key string, val int8) zap.Field {
	return zap.Int8(key, val)
}

func String(key string, val string) zap.Field {
	return zap.String(key, val)
}

func Uint8(key string, val uint8) zap.Field {
	return zap.Uint8(key, val)
}

func Uint64(key string, val uint64) zap.Field {
	return zap.Uint64(key, val)
}
