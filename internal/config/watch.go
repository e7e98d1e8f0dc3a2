package config

import (
	"context"
	"os"
	"time"
)

// WatchHolidays reloads the holidays file on change and calls onUpdate with
// the latest config. It performs an initial load before entering the watch
// loop; files that fail validation are skipped until fixed.
func WatchHolidays(ctx context.Context, path string, interval time.Duration, onUpdate func(*HolidaysConfig)) error {
	if path == "" {
		path = "configs/holidays.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadHolidays(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadHolidays(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
