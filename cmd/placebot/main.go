// Command placebot draws a filled rectangle on the canvas through the public
// placement API using the shared system credential. Placements are throttled
// so a bot run doesn't crowd out interactive traffic.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type placeRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

type placeResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "placeboard server base URL")
		key      = flag.String("key", os.Getenv("BOT_API_KEY"), "system API key")
		x        = flag.Int("x", 0, "rectangle origin column")
		y        = flag.Int("y", 0, "rectangle origin row")
		width    = flag.Int("width", 4, "rectangle width in cells")
		height   = flag.Int("height", 4, "rectangle height in cells")
		color    = flag.String("color", "#ff6600", "fill color")
		interval = flag.Duration("interval", 200*time.Millisecond, "delay between placements")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *key == "" {
		logger.Error("no system key: pass -key or set BOT_API_KEY")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	placed, failed := 0, 0

	for row := *y; row < *y+*height; row++ {
		for col := *x; col < *x+*width; col++ {
			if err := place(client, *server, *key, placeRequest{X: col, Y: row, Color: *color}); err != nil {
				failed++
				logger.Error("placement failed", "x", col, "y", row, "error", err)
			} else {
				placed++
			}
			time.Sleep(*interval)
		}
	}

	logger.Info("bot run complete", "placed", placed, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func place(client *http.Client, server, key string, req placeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequest(http.MethodPost, server+"/v1/place", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Bot-Key", key)

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed placeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("server rejected placement: %s", parsed.Error)
	}
	return nil
}
