package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"foxshelf/internal/app"
	"foxshelf/internal/ratelimit"
	"foxshelf/pkg/domain"
)

type sseEvent struct {
	name string
	data string
}

// readEvents parses a server-sent event stream into (event, data) pairs.
func readEvents(t *testing.T, body *bufio.Scanner) []sseEvent {
	t.Helper()
	var events []sseEvent
	name := ""
	for body.Scan() {
		line := body.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			events = append(events, sseEvent{name: name, data: strings.TrimPrefix(line, "data: ")})
			name = ""
		}
	}
	return events
}

func postChat(t *testing.T, ts string, payload string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts+"/api/chat", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("chat request: %v", err)
	}
	return resp
}

func TestChatStreamsFragments(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp := postChat(t, ts.URL, `{"message":"Hi Foxxy"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := readEvents(t, bufio.NewScanner(resp.Body))
	if len(events) < 3 {
		t.Fatalf("expected session, fragments and done, got %v", events)
	}
	if events[0].name != "session" {
		t.Fatalf("first event = %+v", events[0])
	}
	var sess struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal([]byte(events[0].data), &sess); err != nil || sess.SessionID == "" {
		t.Fatalf("session event data = %q (%v)", events[0].data, err)
	}
	if last := events[len(events)-1]; last.name != "done" {
		t.Fatalf("last event = %+v", last)
	}

	var text strings.Builder
	for _, ev := range events[1 : len(events)-1] {
		var frag struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(ev.data), &frag); err != nil {
			t.Fatalf("fragment data = %q: %v", ev.data, err)
		}
		text.WriteString(frag.Text)
	}
	if text.String() != "Hello there" {
		t.Fatalf("streamed text = %q", text.String())
	}

	// Transcript is retrievable afterwards under the announced id.
	tr, err := http.Get(ts.URL + "/api/chat/" + sess.SessionID)
	if err != nil {
		t.Fatalf("transcript request: %v", err)
	}
	defer tr.Body.Close()
	if tr.StatusCode != http.StatusOK {
		t.Fatalf("transcript expected 200, got %d", tr.StatusCode)
	}
	var transcript struct {
		SessionID string            `json:"sessionId"`
		Turns     []domain.ChatTurn `json:"turns"`
		Awaiting  bool              `json:"awaiting"`
	}
	if err := json.NewDecoder(tr.Body).Decode(&transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(transcript.Turns) != 2 || transcript.Turns[1].Text != "Hello there" {
		t.Fatalf("transcript = %+v", transcript)
	}
	if transcript.Awaiting {
		t.Fatal("session should be idle after the stream completes")
	}
}

func TestChatContinuesExistingSession(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp := postChat(t, ts.URL, `{"message":"first"}`)
	events := readEvents(t, bufio.NewScanner(resp.Body))
	resp.Body.Close()
	var sess struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal([]byte(events[0].data), &sess); err != nil {
		t.Fatalf("session event: %v", err)
	}

	resp = postChat(t, ts.URL, `{"sessionId":"`+sess.SessionID+`","message":"second"}`)
	readEvents(t, bufio.NewScanner(resp.Body))
	resp.Body.Close()

	tr, err := http.Get(ts.URL + "/api/chat/" + sess.SessionID)
	if err != nil {
		t.Fatalf("transcript request: %v", err)
	}
	defer tr.Body.Close()
	var transcript struct {
		Turns []domain.ChatTurn `json:"turns"`
	}
	if err := json.NewDecoder(tr.Body).Decode(&transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(transcript.Turns) != 4 {
		t.Fatalf("expected 4 turns across two exchanges, got %d", len(transcript.Turns))
	}
}

func TestChatRequiresMessage(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp := postChat(t, ts.URL, `{"message":"  "}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChatUnavailableWithoutStreamer(t *testing.T) {
	ts := newTestServer(t, func(cfg *app.Config) {
		cfg.Generator = nil
		cfg.Streamer = nil
	}, nil)

	resp := postChat(t, ts.URL, `{"message":"hi"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestChatRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:chat", 1, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	ts := newTestServer(t, nil, func(cfg *Config) { cfg.ChatLimiter = limiter })

	resp := postChat(t, ts.URL, `{"message":"one"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first message expected 200, got %d", resp.StatusCode)
	}

	resp = postChat(t, ts.URL, `{"message":"two"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second message expected 429, got %d", resp.StatusCode)
	}
}

func TestTranscriptUnknownSession(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/api/chat/nope")
	if err != nil {
		t.Fatalf("transcript request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
