package models

import "time"

type Ingestion struct {
	ID            string
	Title         string
	RawChars      int
	ChunkCount    int
	EndpointCount int
	CurlCount     int
	BaseURL       string
	Degraded      bool
	CreatedAt     time.Time
}

type EndpointRecord struct {
	ID          int
	IngestionID string
	Method      string
	Path        string
	Summary     string
	AuthHint    bool
	HasCurl     bool
	Tags        string
	Source      string
}

type AskRecord struct {
	ID           string
	SessionID    string
	Question     string
	Intent       string
	ResponseType string
	Response     string
	MemoryCount  int
	LatencyMS    int
	CreatedAt    time.Time
}

type SessionTurn struct {
	ID        int
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}
