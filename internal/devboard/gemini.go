package devboard

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

const maxRequestBytes = 4 << 20

// rowLine matches "<rank> <name> <score>" lines of visible page text.
var rowLine = regexp.MustCompile(`^\s*\d+\s+(.+?)\s+(-?[\d,]+(?:\.\d+)?)\s*$`)

// Row is one extracted record in the service's output schema.
type Row struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ParseRows reads leaderboard rows out of page text. Raw HTML is read through
// its table rows; plain text is matched line by line.
func ParseRows(text string) []Row {
	if strings.Contains(text, "<tr") {
		return parseHTMLRows(text)
	}
	rows := []Row{}
	for _, line := range strings.Split(text, "\n") {
		m := rowLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if row, ok := newRow(m[1], m[2]); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func parseHTMLRows(page string) []Row {
	rows := []Row{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return rows
	}
	doc.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		if row, ok := newRow(cells.Eq(1).Text(), cells.Eq(2).Text()); ok {
			rows = append(rows, row)
		}
	})
	return rows
}

func newRow(name, score string) (Row, bool) {
	name = strings.TrimSpace(name)
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(score), ",", ""), 64)
	if name == "" || err != nil {
		return Row{}, false
	}
	return Row{Name: name, Score: f}, true
}

// handleGenerate answers POST /v1beta/models/{model}:generateContent in the
// Gemini response shape, with the quota and key checks configured.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	if s.cfg.APIKey != "" && r.Header.Get("x-goog-api-key") != s.cfg.APIKey {
		writeAPIError(w, http.StatusForbidden, "PERMISSION_DENIED", "API_KEY_INVALID",
			"API key not valid. Please pass a valid API key.")
		return
	}
	n := s.calls.Add(1)
	if s.cfg.QuotaAfter > 0 && n > s.cfg.QuotaAfter {
		writeAPIError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "RATE_LIMIT_EXCEEDED",
			"Quota exceeded for quota metric 'Generate Content API requests per minute'.")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil || !gjson.ValidBytes(body) {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "", "Invalid JSON payload received.")
		return
	}
	parts := gjson.GetBytes(body, "contents.0.parts.#.text").Array()
	if len(parts) == 0 {
		writeAPIError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "", "contents is not specified")
		return
	}

	payload, err := json.Marshal(ParseRows(parts[len(parts)-1].String()))
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL", "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": string(payload)}},
			},
			"finishReason": "STOP",
		}},
	})
}

func writeAPIError(w http.ResponseWriter, status int, code, reason, msg string) {
	e := map[string]any{
		"code":    status,
		"message": msg,
		"status":  code,
	}
	if reason != "" {
		e["details"] = []any{map[string]any{
			"@type":  "type.googleapis.com/google.rpc.ErrorInfo",
			"reason": reason,
		}}
	}
	writeJSON(w, status, map[string]any{"error": e})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
