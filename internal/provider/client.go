package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client consome a API HTTP do provider de odds/resultados.
// Qualquer falha aqui é transiente: o ciclo atual é pulado e o worker
// tenta de novo no próximo intervalo.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Fixtures retorna as partidas agendadas com odds
func (c *Client) Fixtures(ctx context.Context) ([]Fixture, error) {
	var out []Fixture
	if err := c.getJSON(ctx, "/fixtures", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Results retorna os placares das partidas, incluindo as encerradas
func (c *Client) Results(ctx context.Context) ([]Result, error) {
	var out []Result
	if err := c.getJSON(ctx, "/results", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("provider get %s: %w", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("provider get %s: http %d", path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("provider decode %s: %w", path, err)
	}
	return nil
}
