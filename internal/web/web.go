package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"recurcal/internal/config"
	"recurcal/internal/date"
	"recurcal/internal/grid"
	"recurcal/internal/ics"
	appLog "recurcal/internal/log"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

// Server provides the HTTP API over the configured recurrence rules. It
// holds a read-only snapshot of the config and is safe for concurrent use.
type Server struct {
	cfg    *config.Config
	events []model.Event
	byID   map[string]model.Event
	mux    *http.ServeMux
}

// NewServer constructs a Server from cfg, failing if any configured rule
// is invalid.
func NewServer(cfg *config.Config) (*Server, error) {
	events, err := cfg.Events()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		events: events,
		byID:   make(map[string]model.Event, len(events)),
		mux:    http.NewServeMux(),
	}
	for _, ev := range events {
		s.byID[ev.ID] = ev
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "rules", len(s.events))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="recurcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rules", s.handleRules)
	s.mux.HandleFunc("GET /api/rules/{id}/occurrences", s.withEvent(s.handleOccurrences))
	s.mux.HandleFunc("GET /api/rules/{id}/check", s.withEvent(s.handleCheck))
	s.mux.HandleFunc("GET /api/rules/{id}/grid", s.withEvent(s.handleGrid))
	s.mux.HandleFunc("GET /api/rules/{id}/calendar.ics", s.withEvent(s.handleCalendar))
	s.mux.HandleFunc("GET /api/preview", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type ruleDTO struct {
	ID          string         `json:"id"`
	Summary     string         `json:"summary"`
	Description string         `json:"description,omitempty"`
	Rule        model.RuleView `json:"rule"`
}

type rulesResponse struct {
	Rules     []ruleDTO `json:"rules"`
	WeekStart string    `json:"week_start"`
}

type occurrencesResponse struct {
	ID          string             `json:"id"`
	Until       date.Date          `json:"until"`
	Occurrences []model.Occurrence `json:"occurrences"`
}

type checkResponse struct {
	ID         string    `json:"id"`
	Date       date.Date `json:"date"`
	Occurrence bool      `json:"occurrence"`
}

type gridResponse struct {
	grid.Grid
	Prev string `json:"prev"`
	Next string `json:"next"`
}

type previewResponse struct {
	Rule        model.RuleView `json:"rule"`
	Until       date.Date      `json:"until"`
	Occurrences []date.Date    `json:"occurrences"`
	Grid        gridResponse   `json:"grid"`
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	resp := rulesResponse{
		Rules:     make([]ruleDTO, 0, len(s.events)),
		WeekStart: s.cfg.WeekStart,
	}
	for _, ev := range s.events {
		resp.Rules = append(resp.Rules, ruleDTO{
			ID:          ev.ID,
			Summary:     ev.Summary,
			Description: ev.Description,
			Rule:        model.ViewOf(ev.Rule),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// withEvent resolves the {id} path value, answering 404 for unknown ids.
func (s *Server) withEvent(h func(http.ResponseWriter, *http.Request, model.Event)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		ev, ok := s.byID[id]
		if !ok {
			writeError(w, http.StatusNotFound, "unknown rule: "+id)
			return
		}
		h(w, r, ev)
	}
}

// handleOccurrences lists occurrences up to ?horizon. With ?from and/or ?to
// it returns only the occurrences inside that window.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request, ev model.Event) {
	q := r.URL.Query()
	horizon, err := optionalDate(q.Get("horizon"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	from, err := optionalDate(q.Get("from"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := optionalDate(q.Get("to"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	var dates []date.Date
	until := recurrence.Bound(ev.Rule, horizon)
	if from.IsPresent() || to.IsPresent() {
		until = recurrence.Bound(ev.Rule, mo.Some(to.OrElse(until)))
		dates, err = recurrence.Between(ev.Rule, from.OrElse(ev.Rule.Start), until)
	} else {
		dates, err = recurrence.Enumerate(ev.Rule, horizon)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	appLog.Debug("api occurrences", "id", ev.ID, "count", len(dates))
	writeJSON(w, http.StatusOK, occurrencesResponse{
		ID:          ev.ID,
		Until:       until,
		Occurrences: ev.Occurrences(dates),
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request, ev model.Event) {
	d, err := date.Parse(r.URL.Query().Get("date"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ok, err := recurrence.IsOccurrence(ev.Rule, d)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{ID: ev.ID, Date: d, Occurrence: ok})
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request, ev model.Event) {
	g, err := s.buildGrid(r, ev.Rule)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, ev model.Event) {
	horizon, err := optionalDate(r.URL.Query().Get("horizon"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	body, err := ics.Export([]model.Event{ev}, ics.ExportOptions{Horizon: horizon})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ev.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handlePreview evaluates an ad-hoc rule given entirely by query
// parameters: start, end, type, interval, weekdays (comma separated),
// nth_day and month. Occurrences stop one year after start whatever the
// requested end.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rc := config.RuleConfig{
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Type:     q.Get("type"),
		Interval: parseIntDefault(q.Get("interval"), 1),
		NthDay:   parseIntDefault(q.Get("nth_day"), 0),
	}
	if raw := q.Get("weekdays"); raw != "" {
		rc.Weekdays = strings.Split(raw, ",")
	}
	if rc.Interval == 0 {
		// Zero would be defaulted by RuleConfig.Rule; report it instead.
		writeBadRequest(w, errors.New("interval must be at least 1"))
		return
	}

	rule, err := rc.Rule()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	horizon := mo.Some(rule.DefaultHorizon())
	dates, err := recurrence.Enumerate(rule, horizon)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	g, err := s.buildGrid(r, rule)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Rule:        model.ViewOf(rule),
		Until:       recurrence.Bound(rule, horizon),
		Occurrences: dates,
		Grid:        g,
	})
}

// buildGrid renders the month given by ?month=YYYY-MM, defaulting to the
// month of the rule's start. ?week_start=monday|sunday overrides the
// configured first column.
func (s *Server) buildGrid(r *http.Request, rule recurrence.Rule) (gridResponse, error) {
	q := r.URL.Query()

	ym := grid.MonthOf(rule.Start)
	if raw := q.Get("month"); raw != "" {
		parsed, err := grid.ParseYearMonth(raw)
		if err != nil {
			return gridResponse{}, err
		}
		ym = parsed
	}

	weekStart := s.cfg.FirstWeekday()
	switch strings.ToLower(q.Get("week_start")) {
	case "monday":
		weekStart = time.Monday
	case "sunday":
		weekStart = time.Sunday
	}

	g, err := grid.BuildMonthGridFrom(rule, ym, weekStart)
	if err != nil {
		return gridResponse{}, err
	}
	return gridResponse{Grid: g, Prev: ym.Prev().String(), Next: ym.Next().String()}, nil
}

func optionalDate(s string) (mo.Option[date.Date], error) {
	if s == "" {
		return mo.None[date.Date](), nil
	}
	d, err := date.Parse(s)
	if err != nil {
		return mo.None[date.Date](), err
	}
	return mo.Some(d), nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// isInputError reports whether err stems from caller-supplied data.
func isInputError(err error) bool {
	for _, target := range []error{
		recurrence.ErrInvalidInterval,
		recurrence.ErrUnknownType,
		recurrence.ErrInvalidNthDay,
		recurrence.ErrInvalidWeekday,
		date.ErrInvalidDate,
		grid.ErrInvalidMonth,
		grid.ErrInvalidWeekStart,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeEngineError(w http.ResponseWriter, err error) {
	if isInputError(err) {
		writeBadRequest(w, err)
		return
	}
	appLog.Error("api request failed", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
