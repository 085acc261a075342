package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// Hub tuning.
	ChatMaxLen      int           `mapstructure:"chat_max_len" yaml:"chat_max_len"`
	ChatLogCapacity int           `mapstructure:"chat_log_capacity" yaml:"chat_log_capacity"`
	RoomGraceWindow time.Duration `mapstructure:"room_grace_window" yaml:"room_grace_window"`
	ScoreChat       int           `mapstructure:"score_chat" yaml:"score_chat"`
	ScoreVote       int           `mapstructure:"score_vote" yaml:"score_vote"`
	ScoreAttendance int           `mapstructure:"score_attendance" yaml:"score_attendance"`

	// MintEndpoint is the ledger collaborator URL for fire-and-forget mint
	// calls; empty disables minting.
	MintEndpoint string `mapstructure:"mint_endpoint" yaml:"mint_endpoint"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "cohorthub.db",
		JWTSecret:         "dev-secret-change-me",
		JWTIssuer:         "cohort-hub",
		JWTAudience:       "cohort-dashboard",
		ChatMaxLen:        2000,
		ChatLogCapacity:   200,
		RoomGraceWindow:   30 * time.Second,
		ScoreChat:         1,
		ScoreVote:         2,
		ScoreAttendance:   5,
	}
}
