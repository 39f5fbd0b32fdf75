package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clinic-checklist/checklist-service/logging"
	"clinic-checklist/checklist-service/models"

	"github.com/sony/gobreaker"
)

// HTTPSaver submits bulk saves to the checklist API over HTTP. Calls
// run through a circuit breaker so a flapping server trips fast
// instead of queueing timeouts behind every debounce cycle.
type HTTPSaver struct {
	baseURL string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPSaver(baseURL, token string) *HTTPSaver {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ChecklistSaveCB",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &HTTPSaver{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
	}
}

type savePayload struct {
	Date    string             `json:"date"`
	Entries []models.BulkEntry `json:"entries"`
}

// SaveChecklist POSTs the whole-snapshot save. Any non-2xx response or
// transport failure counts against the breaker and surfaces as a save
// error to the session.
func (s *HTTPSaver) SaveChecklist(ctx context.Context, date string, entries []models.BulkEntry) error {
	body, err := json.Marshal(savePayload{Date: date, Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to encode save payload: %v", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/checklist/save", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.token)

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("save failed with status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
