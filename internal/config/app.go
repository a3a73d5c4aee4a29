package config

// LoggerConfig controls the slog handler built by the logger package.
type LoggerConfig struct {
	Level      string // debug | info | warn | error
	Format     string // text (tint) | json
	OutputPath string // stdout | stderr | file path
}

func LoadLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:      envStr("LOG_LEVEL", "info"),
		Format:     envStr("LOG_FORMAT", "text"),
		OutputPath: envStr("LOG_OUTPUT", "stdout"),
	}
}

// UploadConfig describes where ticket attachments are written and how they
// are addressed in API responses.
type UploadConfig struct {
	Dir       string // root directory for stored blobs
	PublicURL string // URL prefix returned to clients
	MaxFiles  int    // max attachments per ticket
	MaxBytes  int64  // max size of one attachment
}

func LoadUploadConfig() UploadConfig {
	return UploadConfig{
		Dir:       envStr("UPLOAD_DIR", "./data/uploads"),
		PublicURL: envStr("UPLOAD_PUBLIC_URL", "/api/attachments"),
		MaxFiles:  envInt("UPLOAD_MAX_FILES", 5),
		MaxBytes:  int64(envInt("UPLOAD_MAX_BYTES", 10<<20)),
	}
}

// EventsConfig configures the RabbitMQ publisher and consumer.  An empty URL
// keeps events in-process.
type EventsConfig struct {
	URL      string
	Queue    string
	Consumer bool // start the background consumer in this process
}

func LoadEventsConfig() EventsConfig {
	url := envStr("RABBITMQ_URL", "")
	if url == "" {
		url = envStr("AMQP_URL", "")
	}
	return EventsConfig{
		URL:      url,
		Queue:    envStr("EVENTS_QUEUE", "fleet.events"),
		Consumer: envBool("EVENTS_CONSUMER", true),
	}
}
