// Package standings builds the championship position history from the
// f1api.dev race results.
package standings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"race_preview/pkg/core/logger"
)

const DefaultBaseURL = "https://f1api.dev/api"

// nameAliases maps API names to the names used in the driver list.
var nameAliases = map[string]string{
	"Andrea Kimi Antonelli": "Kimi Antonelli",
}

type Position struct {
	Round    int `json:"round"`
	Position int `json:"position"`
}

type DriverStanding struct {
	Positions []Position      `json:"positions"`
	Team      string          `json:"team"`
	Number    json.RawMessage `json:"number"`
}

// Standings is the "standings" section of the preview document.
type Standings struct {
	StandingsData map[string]*DriverStanding `json:"standingsData"`
	LatestRound   int                        `json:"latestRound"`
}

type currentSeason struct {
	Races []struct {
		Winner json.RawMessage `json:"winner"`
	} `json:"races"`
}

type raceResult struct {
	Driver struct {
		Name    string          `json:"name"`
		Surname string          `json:"surname"`
		Number  json.RawMessage `json:"number"`
	} `json:"driver"`
	Team struct {
		TeamName string `json:"teamName"`
	} `json:"team"`
	Points float64 `json:"points"`
}

type roundResponse struct {
	Races struct {
		Results []raceResult `json:"results"`
	} `json:"races"`
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int
	log         *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		concurrency: 6,
		log:         log,
	}
}

// Fetch counts the completed rounds of the current season, fetches every
// round's results and accumulates points in round order. A round that fails
// to load is skipped.
func (c *Client) Fetch(ctx context.Context, season string) (*Standings, error) {
	var current currentSeason
	if err := c.getJSON(ctx, "/current", &current); err != nil {
		return nil, fmt.Errorf("failed to fetch current season: %w", err)
	}
	latest := 0
	for _, r := range current.Races {
		if isSet(r.Winner) {
			latest++
		}
	}
	c.log.Info("completed rounds found", "season", season, "rounds", latest)

	rounds := make([][]raceResult, latest+1)
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for round := 1; round <= latest; round++ {
		round := round
		g.Go(func() error {
			var resp roundResponse
			if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/race", season, round), &resp); err != nil {
				c.log.Warn("round skipped", "round", round, "error", err)
				return nil // Don't fail the group
			}
			rounds[round] = resp.Races.Results
			return nil
		})
	}
	_ = g.Wait()

	return accumulate(rounds, latest), nil
}

// accumulate replays rounds 1..latest. rounds[i] holds the results of
// round i; an empty slot is a round without data.
func accumulate(rounds [][]raceResult, latest int) *Standings {
	out := &Standings{StandingsData: map[string]*DriverStanding{}, LatestRound: latest}
	points := map[string]float64{}
	var order []string // first appearance, the tie-break

	for round := 1; round < len(rounds); round++ {
		results := rounds[round]
		if len(results) == 0 {
			continue
		}
		for _, r := range results {
			name := displayName(r.Driver.Name, r.Driver.Surname)
			if _, ok := points[name]; !ok {
				order = append(order, name)
				out.StandingsData[name] = &DriverStanding{
					Positions: []Position{},
					Team:      r.Team.TeamName,
					Number:    r.Driver.Number,
				}
			}
			points[name] += r.Points
		}

		ranked := append([]string(nil), order...)
		sort.SliceStable(ranked, func(i, j int) bool { return points[ranked[i]] > points[ranked[j]] })
		for i, name := range ranked {
			s := out.StandingsData[name]
			s.Positions = append(s.Positions, Position{Round: round, Position: i + 1})
		}
	}
	return out
}

func displayName(first, last string) string {
	name := strings.TrimSpace(first + " " + last)
	if alias, ok := nameAliases[name]; ok {
		return alias
	}
	return name
}

func isSet(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
