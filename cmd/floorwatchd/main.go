package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"factory-floor-monitor/internal/floorwatch"
)

func main() {
	var err error
	var configFile string
	var config floorwatch.Config

	rootCmd := &cobra.Command{
		Use:   "floorwatchd",
		Short: "Poll the floor monitor API and raise reboot alerts",
		// Main Entry Point
		Run: func(c *cobra.Command, args []string) {
			// Init
			w, err := floorwatch.New(config, nil)
			if err != nil {
				log.Fatalf("Failed on init: %v", err)
			}

			err = w.Run()
			if err != nil {
				log.Fatalf("Failed on start: %v", err)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "Path to configuration")

	// Defaults
	viper.SetDefault("watch.endpoint", "localhost:3001")
	viper.SetDefault("watch.poll_interval", 5)
	viper.SetDefault("watch.stale_timeout", 60)
	viper.SetDefault("smtp.port", 587)

	// Read Configuration File Before Start
	cobra.OnInitialize(func() {
		_, err := os.Stat(configFile)
		if os.IsNotExist(err) {
			envConfFile := os.Getenv("CONFIG_FILE")
			if envConfFile != "" {
				_, err := os.Stat(envConfFile)
				if os.IsNotExist(err) {
					log.Fatalf("Config file %s does not exist!", envConfFile)
				}

				configFile = envConfFile
			} else {
				log.Fatalf("Config file %s does not exist!", configFile)
			}
		}

		viper.SetConfigFile(configFile)
		viper.SetConfigType("json")
		err = viper.ReadInConfig()
		if err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}

		err = viper.Unmarshal(&config)
		if err != nil {
			log.Fatalf("Failed to parse config: %v", err)
		}

		log.Printf("Loaded config file: %s", configFile)
	})

	// Launch (cobra.OnInitialize -> rootCmd.Run)
	err = rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
