package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// videosResponse mirrors the courtclips /api/videos response.
type videosResponse struct {
	Date  string `json:"date"`
	Games []struct {
		GameID string   `json:"gameId"`
		Slug   string   `json:"slug"`
		Videos []string `json:"videos"`
	} `json:"games"`
	Error string `json:"error"`
}

func main() {
	apiURL := os.Getenv("COURTCLIPS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	apiURL = strings.TrimRight(apiURL, "/")

	s := server.NewMCPServer(
		"courtclips",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	gameVideosTool := mcp.NewTool("game_videos",
		mcp.WithDescription("List the NBA games played on a date together with the video clip URLs found on each game's play-by-play page. Rendering takes a few seconds per game."),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Game date as used by nba.com, e.g. 2024-01-15"),
		),
	)
	s.AddTool(gameVideosTool, handleGameVideos(apiURL))

	healthTool := mcp.NewTool("service_health",
		mcp.WithDescription("Report courtclips service status, uptime and browser pool utilisation."),
	)
	s.AddTool(healthTool, handleServiceHealth(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiGet sends a GET request to the courtclips API and returns the status
// code and response body.
func apiGet(ctx context.Context, client *http.Client, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func handleGameVideos(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, err := request.RequireString("date")
		if err != nil || date == "" {
			return mcp.NewToolResultError("date is required"), nil
		}

		status, body, err := apiGet(ctx, client, apiURL+"/api/videos?date="+url.QueryEscape(date))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var vr videosResponse
		if err := json.Unmarshal(body, &vr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if status != http.StatusOK {
			msg := vr.Error
			if msg == "" {
				msg = http.StatusText(status)
			}
			return mcp.NewToolResultError(fmt.Sprintf("[%d] %s", status, msg)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Games on %s: %d\n\n", vr.Date, len(vr.Games)))
		for i, g := range vr.Games {
			sb.WriteString(fmt.Sprintf("--- [%d] %s (%s): %d videos ---\n", i+1, g.GameID, g.Slug, len(g.Videos)))
			for _, v := range g.Videos {
				sb.WriteString(v)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleServiceHealth(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, body, err := apiGet(ctx, client, apiURL+"/healthz")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(fmt.Sprintf("[%d] %s", status, strings.TrimSpace(string(body)))), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
