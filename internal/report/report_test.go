package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/hooks"
	"github.com/soyeahso/honeypot/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func endedSnapshot() domain.Snapshot {
	return domain.Snapshot{
		ID:           "s1",
		TurnCount:    6,
		MessageCount: 12,
		Detected:     true,
		Confidence:   domain.ConfidenceHigh,
		ScamType:     domain.ScamTypeUPIFraud,
		Intelligence: domain.IntelligenceReport{
			Phones:         []string{"9876543210"},
			Emails:         []string{"fraud@example.com"},
			PaymentHandles: []string{"refund@ybl"},
			BankAccounts:   []string{"123456789012"},
			Links:          []string{},
			Amounts:        []string{"5000"},
			BankNames:      []string{"sbi"},
			Keywords:       []string{"payment_demand", "urgency"},
		},
		Notes: []string{"Detected via indicators: urgency, payment_demand", "Engagement ended: high-value"},
	}
}

func endVerdict() domain.Verdict {
	return domain.Verdict{Decision: domain.DecisionEnd, Rule: "high_value", Reason: "high-value intelligence collected"}
}

func TestBuild(t *testing.T) {
	ended := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := Build(endedSnapshot(), endVerdict(), ended)

	assert.Equal(t, "s1", r.SessionID)
	assert.True(t, r.ScamDetected)
	assert.Equal(t, 12, r.TotalMessagesExchanged)
	assert.Equal(t, []string{"refund@ybl"}, r.ExtractedIntelligence.UPIIDs)
	assert.Equal(t, "Detected via indicators: urgency, payment_demand | Engagement ended: high-value", r.AgentNotes)
	assert.Equal(t, "high-value intelligence collected", r.ExitReason)
	assert.Equal(t, "HIGH", r.Confidence)
	assert.Equal(t, 69, r.Value.Score)
	assert.Equal(t, "A", r.Value.Grade)
	assert.Equal(t, ended, r.EndedAt)
}

func TestBuildWithoutNotes(t *testing.T) {
	snap := endedSnapshot()
	snap.Notes = nil
	assert.Equal(t, "No notes", Build(snap, endVerdict(), time.Now()).AgentNotes)
}

func TestCallbackJSONShape(t *testing.T) {
	r := Build(endedSnapshot(), endVerdict(), time.Now())
	raw, err := json.Marshal(r.Callback)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.ElementsMatch(t,
		[]string{"sessionId", "scamDetected", "totalMessagesExchanged", "extractedIntelligence", "agentNotes"},
		keys(m))
	intel := m["extractedIntelligence"].(map[string]any)
	assert.ElementsMatch(t,
		[]string{"bankAccounts", "upiIds", "emails", "phishingLinks", "phoneNumbers", "suspiciousKeywords"},
		keys(intel))
	assert.Equal(t, []any{}, intel["phishingLinks"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func callbackConfig(url string, retries int) config.CallbackConfig {
	return config.CallbackConfig{URL: url, APIKey: "partner-key", TimeoutSeconds: 5, Retries: retries}
}

func TestCallbackSinkPosts(t *testing.T) {
	var got Callback
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "partner-key", r.Header.Get("x-api-key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewCallbackSink(callbackConfig(srv.URL, 0), silentLog())
	require.NoError(t, s.Send(context.Background(), Build(endedSnapshot(), endVerdict(), time.Now())))
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, []string{"123456789012"}, got.ExtractedIntelligence.BankAccounts)
}

func TestCallbackSinkRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewCallbackSink(callbackConfig(srv.URL, 2), silentLog())
	require.NoError(t, s.Send(context.Background(), Build(endedSnapshot(), endVerdict(), time.Now())))
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallbackSinkRejectsClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewCallbackSink(callbackConfig(srv.URL, 3), silentLog())
	err := s.Send(context.Background(), Build(endedSnapshot(), endVerdict(), time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestArchiveSink(t *testing.T) {
	store, err := archive.OpenSQLite(":memory:", silentLog())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	s := NewArchiveSink(store)
	require.NoError(t, s.Send(ctx, Build(endedSnapshot(), endVerdict(), time.Now())))

	rec, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "A", rec.Grade)
	assert.Equal(t, 12, rec.MessageCount)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Report, &decoded))
	assert.Equal(t, "s1", decoded["sessionId"])
	assert.Contains(t, decoded, "scammerProfile")
}

type fakeSink struct {
	name string
	err  error

	mu  sync.Mutex
	got []Report
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Send(_ context.Context, r Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, r)
	return f.err
}

func TestDispatchIsolatesFailures(t *testing.T) {
	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", err: errors.New("unreachable")}
	hk := hooks.NewManager(silentLog())

	var dispatched hooks.Payload
	hk.On(hooks.EventReportDispatched, "capture", func(_ context.Context, p hooks.Payload) error {
		dispatched = p
		return nil
	})

	d := NewDispatcher(silentLog(), hk, bad, good)
	err := d.Dispatch(context.Background(), Build(endedSnapshot(), endVerdict(), time.Now()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: unreachable")
	assert.Len(t, good.got, 1)
	assert.Len(t, bad.got, 1)
	assert.Equal(t, "s1", dispatched.SessionID)
	assert.Equal(t, []string{"bad", "good"}, dispatched.Data["sinks"])
}

func TestHandlerBuildsFromEvent(t *testing.T) {
	sink := &fakeSink{name: "fake"}
	d := NewDispatcher(silentLog(), nil, sink)
	ended := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	err := d.Handler()(context.Background(), hooks.Payload{
		Event:     hooks.EventEngagementEnded,
		SessionID: "s1",
		Time:      ended,
		Data:      map[string]any{"snapshot": endedSnapshot(), "verdict": endVerdict()},
	})
	require.NoError(t, err)
	require.Len(t, sink.got, 1)
	assert.Equal(t, ended, sink.got[0].EndedAt)
	assert.Equal(t, "high_value", sink.got[0].ExitRule)

	err = d.Handler()(context.Background(), hooks.Payload{Event: hooks.EventEngagementEnded, SessionID: "s2"})
	assert.Error(t, err)
}

func TestEndToEndThroughHooks(t *testing.T) {
	sink := &fakeSink{name: "fake"}
	hk := hooks.NewManager(silentLog())
	d := NewDispatcher(silentLog(), hk, sink)
	hk.On(hooks.EventEngagementEnded, "report", d.Handler())

	hk.EmitAsync(context.Background(), hooks.EventEngagementEnded, "s1",
		map[string]any{"snapshot": endedSnapshot(), "verdict": endVerdict()})
	require.NoError(t, hk.Drain(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.got, 1)
}
