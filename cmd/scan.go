package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pnodeatlas/config"
	"pnodeatlas/services"
	"pnodeatlas/utils"
)

var scanCmd = &cobra.Command{
	Use:   "scan <ip>",
	Short: "Resolve the geolocation of a single IP address",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	geo, err := utils.NewGeoResolver(services.NewCache(), cfg.Geo.DBPath, cfg.GeoTimeout(), logger)
	if err != nil {
		return fmt.Errorf("init geo resolver: %w", err)
	}
	defer geo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	location := geo.Resolve(ctx, args[0])
	if location == nil {
		return fmt.Errorf("could not determine location for %s", args[0])
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(location)
}
