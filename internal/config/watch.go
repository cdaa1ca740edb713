package config

import (
	"context"
	"os"
	"time"
)

// WatchFile polls path and calls onChange with the new contents whenever its mtime advances.
// The current contents are not delivered; only later changes are.
func WatchFile(ctx context.Context, path string, interval time.Duration, onChange func([]byte)) error {
	if interval <= 0 {
		interval = 30 * time.Second
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
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onChange != nil {
					onChange(data)
				}
			}
		}
	}()

	return nil
}
