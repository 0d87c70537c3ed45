package provider

import "time"

// Fixture é uma partida agendada fornecida pelo provider, com as odds
// por casa/mercado. O externalId é a chave de ingestão idempotente.
type Fixture struct {
	ExternalID string      `json:"externalId"`
	HomeTeam   string      `json:"homeTeam"`
	AwayTeam   string      `json:"awayTeam"`
	StartTime  time.Time   `json:"startTime"`
	Bookmakers []Bookmaker `json:"bookmakers"`
}

type Bookmaker struct {
	Key     string   `json:"key"`
	Markets []Market `json:"markets"`
}

type Market struct {
	Key      string    `json:"key"` // "h2h" para o mercado 1x2
	Outcomes []Outcome `json:"outcomes"`
}

type Outcome struct {
	Name  string  `json:"name"` // nome do time, ou "Draw"
	Price float64 `json:"price"`
}

// Result é o placar final de uma partida encerrada.
type Result struct {
	ExternalID string `json:"externalId"`
	Status     string `json:"status"` // "finished" quando encerrada
	HomeScore  int    `json:"homeScore"`
	AwayScore  int    `json:"awayScore"`
}

const StatusFinished = "finished"
