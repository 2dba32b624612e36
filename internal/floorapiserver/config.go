package floorapiserver

// Config defines the configuration structure for the floor monitor API server
type Config struct {
	Monitor struct {
		StaleTimeout int  `mapstructure:"stale_timeout"`
		Debug        bool `mapstructure:"debug"`
	} `mapstructure:"monitor"`
	Db struct {
		Driver string `mapstructure:"driver"`
		Debug  bool   `mapstructure:"debug"`
		Mysql  struct {
			User     string `mapstructure:"user"`
			Password string `mapstructure:"password"`
			Host     string `mapstructure:"host"`
			Database string `mapstructure:"database"`
		} `mapstructure:"mysql"`
		Sqlite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
	} `mapstructure:"db"`
	Http struct {
		ServerName string `mapstructure:"server_name"`
		Listen     string `mapstructure:"listen"`
		Debug      bool   `mapstructure:"debug"`
	} `mapstructure:"http"`
}
