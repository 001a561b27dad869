package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "catalog_db", cfg.Database.Database)
				assert.Equal(t, "image_jobs_exchange", cfg.RabbitMQ.Exchange)
				assert.Equal(t, "image_jobs_queue", cfg.RabbitMQ.Queue)
				assert.Equal(t, int64(16<<20), cfg.Upload.MaxBytes)
				assert.Equal(t, "/tmp/output_images", cfg.Output.ImageDir)
				assert.Equal(t, "/tmp/output_csvs", cfg.Output.CSVDir)
				assert.Equal(t, 10*time.Second, cfg.Worker.FetchTimeout)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/invalid_port.yaml")
	require.NoError(t, err)

	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Upload.MaxBytes)
	assert.Equal(t, 10*time.Second, cfg.Worker.FetchTimeout)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "env-db-password")
	t.Setenv("RABBITMQ_PASSWORD", "env-mq-password")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "env-db-password", cfg.Database.Password)
	assert.Equal(t, "env-mq-password", cfg.RabbitMQ.Password)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "catalog_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: "image_jobs_exchange",
			Queue:    "image_jobs_queue",
		},
		Worker: WorkerConfig{
			Concurrency:  4,
			JobTimeout:   time.Minute,
			FetchTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{Dir: "/tmp/uploads", MaxBytes: DefaultMaxUploadBytes},
		Output: OutputConfig{ImageDir: "/tmp/output_images", CSVDir: "/tmp/output_csvs"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "server port too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "server port too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "empty upload dir",
			mutate:    func(c *Config) { c.Upload.Dir = "" },
			wantErr:   true,
			errString: "upload dir is required",
		},
		{
			name: "rate limit enabled without max_requests",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, Window: time.Minute}
			},
			wantErr:   true,
			errString: "rate limit max_requests",
		},
		{
			name: "redis store without addr",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, MaxRequests: 100, Window: time.Minute, Store: "redis"}
			},
			wantErr:   true,
			errString: "redis addr is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorker(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "worker concurrency",
		},
		{
			name:      "zero job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			wantErr:   true,
			errString: "worker job_timeout",
		},
		{
			name:      "empty image output dir",
			mutate:    func(c *Config) { c.Output.ImageDir = "" },
			wantErr:   true,
			errString: "image output dir is required",
		},
		{
			name:      "empty csv output dir",
			mutate:    func(c *Config) { c.Output.CSVDir = "" },
			wantErr:   true,
			errString: "csv output dir is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorker()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)

		require.NoError(t, cfg.Validate())
		require.NoError(t, cfg.ValidateWorker())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
