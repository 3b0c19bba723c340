package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	DBPath       string
	VisionAPIKey string
	PhotoPath    string
	LogLevel     string
	LogFile      string

	ARWaitTimeout time.Duration

	QualityMinTotalVolume float64
	QualityMinConfidence  float64
	QualityMaxAvgVolume   float64
	QualityMinAvgVolume   float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/volumescan.db"),
		VisionAPIKey:  getEnv("VISION_API_KEY", ""),
		PhotoPath:     getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		ARWaitTimeout: getDurationEnv("AR_WAIT_TIMEOUT", 5*time.Second),

		QualityMinTotalVolume: getFloatEnv("QUALITY_MIN_TOTAL_VOLUME", 1.0),
		QualityMinConfidence:  getFloatEnv("QUALITY_MIN_CONFIDENCE", 0.6),
		QualityMaxAvgVolume:   getFloatEnv("QUALITY_MAX_AVG_VOLUME", 2.0),
		QualityMinAvgVolume:   getFloatEnv("QUALITY_MIN_AVG_VOLUME", 0.01),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
