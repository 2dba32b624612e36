package floorwatch

// Config defines the configuration structure for the floor watcher.
// The SMTP block is loaded once at startup and passed into New;
// changing it requires a restart.
type Config struct {
	Watch struct {
		Endpoint     string `mapstructure:"endpoint"`
		PollInterval int    `mapstructure:"poll_interval"`
		StaleTimeout int    `mapstructure:"stale_timeout"`
		Debug        bool   `mapstructure:"debug"`
	} `mapstructure:"watch"`
	Smtp struct {
		Host     string   `mapstructure:"host"`
		Port     int      `mapstructure:"port"`
		User     string   `mapstructure:"user"`
		Password string   `mapstructure:"password"`
		From     string   `mapstructure:"from"`
		To       []string `mapstructure:"to"`
	} `mapstructure:"smtp"`
}
