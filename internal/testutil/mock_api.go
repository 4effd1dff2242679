// Package testutil provides a mock Rick and Morty GraphQL server for tests.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// GraphQLRequest is a decoded request as received by the mock.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// MockAPI is a configurable GraphQL server.
type MockAPI struct {
	server  *httptest.Server
	mu      sync.RWMutex
	handler func(w http.ResponseWriter, r *http.Request, req GraphQLRequest)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	Requests          []GraphQLRequest
}

// NewMockAPI creates a mock server. Until a handler is set it answers every
// query with an empty data object.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GraphQLRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.Requests = append(mock.Requests, req)
		handler := mock.handler
		mock.mu.Unlock()

		if handler != nil {
			handler(w, r, req)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":{}}`))
	}))

	return mock
}

// URL returns the GraphQL endpoint URL.
func (m *MockAPI) URL() string {
	return m.server.URL + "/graphql"
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.Requests = nil
}

// SetHandler sets the handler for every request.
func (m *MockAPI) SetHandler(handler func(w http.ResponseWriter, r *http.Request, req GraphQLRequest)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// SetResponse answers every request with resp.
func (m *MockAPI) SetResponse(resp MockResponse) {
	m.SetHandler(func(w http.ResponseWriter, r *http.Request, _ GraphQLRequest) {
		writeMockResponse(w, resp)
	})
}

// SetSequence answers successive requests with responses in order, repeating
// the last one once the sequence is used up.
func (m *MockAPI) SetSequence(responses ...MockResponse) {
	var (
		mu sync.Mutex
		i  int
	)
	m.SetHandler(func(w http.ResponseWriter, r *http.Request, _ GraphQLRequest) {
		mu.Lock()
		resp := responses[min(i, len(responses)-1)]
		i++
		mu.Unlock()
		writeMockResponse(w, resp)
	})
}

// SetCharacters serves GetCharacters queries from records, pageSize per page.
func (m *MockAPI) SetCharacters(records []character.Record, pageSize int) {
	m.SetHandler(NewCharactersHandler(records, pageSize))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// LastRequest returns the most recent decoded request.
func (m *MockAPI) LastRequest() GraphQLRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.Requests) == 0 {
		return GraphQLRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

func writeMockResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewCharactersHandler filters records by the status and species variables
// (case-insensitive, species by substring like the real API) and pages them.
// Past the last page it answers like the API does for empty results.
func NewCharactersHandler(records []character.Record, pageSize int) func(w http.ResponseWriter, r *http.Request, req GraphQLRequest) {
	return func(w http.ResponseWriter, r *http.Request, req GraphQLRequest) {
		page := intVar(req.Variables, "page", 1)
		status := strings.ToLower(stringVar(req.Variables, "status"))
		species := strings.ToLower(stringVar(req.Variables, "species"))

		var matched []character.Record
		for _, rec := range records {
			if status != "" && strings.ToLower(string(rec.Status)) != status {
				continue
			}
			if species != "" && !strings.Contains(strings.ToLower(rec.Species), species) {
				continue
			}
			matched = append(matched, rec)
		}

		pages := (len(matched) + pageSize - 1) / pageSize
		start := (page - 1) * pageSize
		if len(matched) == 0 || start >= len(matched) || page < 1 {
			writeMockResponse(w, NewNotFoundResponse())
			return
		}
		end := min(start+pageSize, len(matched))

		results := make([]string, 0, end-start)
		for _, rec := range matched[start:end] {
			results = append(results, characterJSON(rec))
		}

		next := "null"
		if page < pages {
			next = strconv.Itoa(page + 1)
		}

		body := fmt.Sprintf(`{"data":{"characters":{"info":{"count":%d,"pages":%d,"next":%s},"results":[%s]}}}`,
			len(matched), pages, next, strings.Join(results, ","))
		writeMockResponse(w, NewHealthyResponse(body))
	}
}

func characterJSON(rec character.Record) string {
	b, _ := json.Marshal(map[string]any{
		"id":      rec.ID,
		"name":    rec.Name,
		"status":  string(rec.Status),
		"species": rec.Species,
		"gender":  rec.Gender,
		"origin":  map[string]string{"name": rec.OriginName},
	})
	return string(b)
}

func intVar(vars map[string]any, name string, def int) int {
	switch v := vars[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func stringVar(vars map[string]any, name string) string {
	s, _ := vars[name].(string)
	return s
}

// NewHealthyResponse creates a standard 200 OK response with rate limit headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse is the API's answer to a filter with no matches.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"errors":[{"message":"404: Not Found","path":["characters"]}],"data":{"characters":null}}`,
	}
}

// NewGraphQLErrorResponse creates a 200 response carrying a GraphQL error.
func NewGraphQLErrorResponse(message string) MockResponse {
	b, _ := json.Marshal(map[string]any{
		"errors": []map[string]string{{"message": message}},
		"data":   nil,
	})
	return MockResponse{StatusCode: http.StatusOK, Body: string(b)}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too many requests"}`,
		Headers: map[string]string{
			"Retry-After":           strconv.Itoa(retryAfter),
			"X-RateLimit-Remaining": "0",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewBadRequestResponse creates a 400 response with a GraphQL error body.
func NewBadRequestResponse(message string) MockResponse {
	resp := NewGraphQLErrorResponse(message)
	resp.StatusCode = http.StatusBadRequest
	return resp
}

// SampleCharacters returns a small fixed cast for tests.
func SampleCharacters() []character.Record {
	return []character.Record{
		{ID: "1", Name: "Rick Sanchez", Status: character.StatusAlive, Species: "Human", Gender: "Male", OriginName: "Earth (C-137)"},
		{ID: "2", Name: "Morty Smith", Status: character.StatusAlive, Species: "Human", Gender: "Male", OriginName: "unknown"},
		{ID: "3", Name: "Summer Smith", Status: character.StatusAlive, Species: "Human", Gender: "Female", OriginName: "Earth (Replacement Dimension)"},
		{ID: "4", Name: "Beth Smith", Status: character.StatusAlive, Species: "Human", Gender: "Female", OriginName: "Earth (Replacement Dimension)"},
		{ID: "5", Name: "Jerry Smith", Status: character.StatusAlive, Species: "Human", Gender: "Male", OriginName: "Earth (Replacement Dimension)"},
		{ID: "6", Name: "Abadango Cluster Princess", Status: character.StatusAlive, Species: "Alien", Gender: "Female", OriginName: "Abadango"},
		{ID: "7", Name: "Abradolf Lincler", Status: character.StatusUnknown, Species: "Human", Gender: "Male", OriginName: "Earth (Replacement Dimension)"},
		{ID: "8", Name: "Adjudicator Rick", Status: character.StatusDead, Species: "Human", Gender: "Male", OriginName: "unknown"},
		{ID: "9", Name: "Agency Director", Status: character.StatusDead, Species: "Human", Gender: "Male", OriginName: "Earth (Replacement Dimension)"},
		{ID: "10", Name: "Alan Rails", Status: character.StatusDead, Species: "Human", Gender: "Male", OriginName: "unknown"},
		{ID: "11", Name: "Albert Einstein", Status: character.StatusDead, Species: "Human", Gender: "Male", OriginName: "Earth (C-137)"},
		{ID: "12", Name: "Alexander", Status: character.StatusDead, Species: "Human", Gender: "Male", OriginName: "Earth (C-137)"},
		{ID: "13", Name: "Alien Googah", Status: character.StatusUnknown, Species: "Alien", Gender: "unknown", OriginName: "unknown"},
	}
}
