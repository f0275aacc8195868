package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/nconklindev/roas/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type apiCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

type batchBody struct {
	Requests []struct {
		DeleteSheet *struct {
			SheetID *int64 `json:"sheetId"`
		} `json:"deleteSheet"`
		AddSheet *struct {
			Properties struct {
				Title          string `json:"title"`
				GridProperties struct {
					RowCount    int `json:"rowCount"`
					ColumnCount int `json:"columnCount"`
				} `json:"gridProperties"`
			} `json:"properties"`
		} `json:"addSheet"`
		RepeatCell *struct {
			Range struct {
				SheetID       *int64 `json:"sheetId"`
				StartRowIndex *int64 `json:"startRowIndex"`
				EndRowIndex   int64  `json:"endRowIndex"`
			} `json:"range"`
			Fields string `json:"fields"`
		} `json:"repeatCell"`
	} `json:"requests"`
}

// fakeSheetsAPI serves the subset of the Sheets v4 REST surface the backend uses.
// It starts with one worksheet and hands out newSheetID to the next added sheet.
type fakeSheetsAPI struct {
	t *testing.T

	mu         sync.Mutex
	calls      []apiCall
	sheets     map[string]int64
	newSheetID int64
	failAppend bool
}

func newFakeSheetsAPI(t *testing.T, existing map[string]int64) (*fakeSheetsAPI, *GoogleBackend) {
	t.Helper()
	api := &fakeSheetsAPI{t: t, sheets: existing, newSheetID: 77}

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	backend, err := NewGoogleBackend(context.Background(), "sheet-id",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return api, backend
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/v4/spreadsheets/sheet-id"):
		type props struct {
			SheetID int64  `json:"sheetId"`
			Title   string `json:"title"`
		}
		var out struct {
			Sheets []struct {
				Properties props `json:"properties"`
			} `json:"sheets"`
		}
		for title, id := range f.sheets {
			out.Sheets = append(out.Sheets, struct {
				Properties props `json:"properties"`
			}{props{SheetID: id, Title: title}})
		}
		_ = json.NewEncoder(w).Encode(out)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req batchBody
		if err := json.Unmarshal(body, &req); err != nil {
			f.t.Errorf("bad batchUpdate body: %v", err)
		}
		for _, rq := range req.Requests {
			switch {
			case rq.DeleteSheet != nil && rq.DeleteSheet.SheetID != nil:
				for title, id := range f.sheets {
					if id == *rq.DeleteSheet.SheetID {
						delete(f.sheets, title)
					}
				}
			case rq.AddSheet != nil:
				title := rq.AddSheet.Properties.Title
				f.sheets[title] = f.newSheetID
				_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-id","replies":[{"addSheet":{"properties":{"sheetId":`+
					jsonInt(f.newSheetID)+`,"title":`+jsonString(title)+`}}}]}`)
				return
			}
		}
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-id","replies":[{}]}`)

	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/values/"):
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-id"}`)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		if f.failAppend {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"code":500,"message":"backend error","status":"INTERNAL"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-id"}`)

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSheetsAPI) recorded() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func findCall(t *testing.T, calls []apiCall, method, suffix string) apiCall {
	t.Helper()
	for _, c := range calls {
		if c.Method == method && strings.HasSuffix(c.Path, suffix) {
			return c
		}
	}
	t.Fatalf("no %s request ending in %q", method, suffix)
	return apiCall{}
}

func batchCalls(t *testing.T, calls []apiCall) []batchBody {
	t.Helper()
	var out []batchBody
	for _, c := range calls {
		if c.Method != http.MethodPost || !strings.HasSuffix(c.Path, ":batchUpdate") {
			continue
		}
		var b batchBody
		require.NoError(t, json.Unmarshal(c.Body, &b))
		require.Len(t, b.Requests, 1)
		out = append(out, b)
	}
	return out
}

func TestGoogleBackend_ReplaceThenAppend(t *testing.T) {
	api, backend := newFakeSheetsAPI(t, map[string]int64{"Leads": 0})
	w := NewWriter(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	res, err := w.Write(ctx, "Leads", leadTable(), types.ModeReplace)
	require.NoError(t, err)
	assert.NoError(t, res.FormatErr)

	calls := api.recorded()
	batches := batchCalls(t, calls)
	require.Len(t, batches, 3)

	// Sheet id 0 must be sent explicitly or the delete targets nothing.
	del := findCall(t, calls, http.MethodPost, ":batchUpdate")
	assert.Contains(t, string(del.Body), `{"deleteSheet":{"sheetId":0}}`)
	require.NotNil(t, batches[0].Requests[0].DeleteSheet)

	add := batches[1].Requests[0].AddSheet
	require.NotNil(t, add)
	assert.Equal(t, "Leads", add.Properties.Title)
	assert.Equal(t, 3+RowMargin, add.Properties.GridProperties.RowCount)
	assert.Equal(t, 5+ColMargin, add.Properties.GridProperties.ColumnCount)

	repeat := batches[2].Requests[0].RepeatCell
	require.NotNil(t, repeat)
	require.NotNil(t, repeat.Range.SheetID)
	assert.Equal(t, int64(77), *repeat.Range.SheetID)
	require.NotNil(t, repeat.Range.StartRowIndex)
	assert.Equal(t, int64(0), *repeat.Range.StartRowIndex)
	assert.Equal(t, int64(1), repeat.Range.EndRowIndex)
	assert.Equal(t, "userEnteredFormat(backgroundColor,textFormat.bold)", repeat.Fields)

	put := findCall(t, calls, http.MethodPut, "/values/'Leads'!A1")
	assert.Equal(t, "USER_ENTERED", put.Query.Get("valueInputOption"))
	var written struct {
		Values [][]string `json:"values"`
	}
	require.NoError(t, json.Unmarshal(put.Body, &written))
	assert.Equal(t, leadTable().Grid(), written.Values)

	more := leadTable()
	more.Rows = [][]string{{"3", "Acme", "Alt", "Yes", "call"}}
	res, err = w.Write(ctx, "Leads", more, types.ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsWritten)

	calls = api.recorded()
	app := findCall(t, calls, http.MethodPost, "/values/'Leads':append")
	assert.Equal(t, "USER_ENTERED", app.Query.Get("valueInputOption"))
	assert.Equal(t, "INSERT_ROWS", app.Query.Get("insertDataOption"))
	require.NoError(t, json.Unmarshal(app.Body, &written))
	assert.Equal(t, more.Rows, written.Values)

	// APPEND makes no batchUpdate of its own.
	assert.Len(t, batchCalls(t, calls), 3)
}

func TestGoogleBackend_ReplaceMissingSheetSkipsDelete(t *testing.T) {
	api, backend := newFakeSheetsAPI(t, map[string]int64{"Other": 3})

	_, err := NewWriter(backend, nil).Write(context.Background(), "Leads", leadTable(), types.ModeReplace)
	require.NoError(t, err)

	batches := batchCalls(t, api.recorded())
	require.Len(t, batches, 2)
	assert.NotNil(t, batches[0].Requests[0].AddSheet)
	assert.NotNil(t, batches[1].Requests[0].RepeatCell)
}

func TestGoogleBackend_QuotesSheetTitle(t *testing.T) {
	api, backend := newFakeSheetsAPI(t, map[string]int64{"Bob's Leads": 4})
	ctx := context.Background()

	ws, err := backend.Worksheet(ctx, "Bob's Leads")
	require.NoError(t, err)
	assert.Equal(t, int64(4), ws.ID)

	require.NoError(t, backend.Update(ctx, ws, "B2", [][]string{{"x"}}))
	findCall(t, api.recorded(), http.MethodPut, "/values/'Bob''s Leads'!B2")
}

func TestGoogleBackend_WorksheetNotFound(t *testing.T) {
	_, backend := newFakeSheetsAPI(t, map[string]int64{"Leads": 0})

	_, err := NewWriter(backend, nil).Write(context.Background(), "Nope", leadTable(), types.ModeAppend)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorksheetNotFound)
}

func TestGoogleBackend_AppendServerError(t *testing.T) {
	api, backend := newFakeSheetsAPI(t, map[string]int64{"Leads": 0})
	api.mu.Lock()
	api.failAppend = true
	api.mu.Unlock()

	res, err := NewWriter(backend, nil).Write(context.Background(), "Leads", leadTable(), types.ModeAppend)
	assert.Nil(t, res)

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "append", re.Op)
	assert.Equal(t, "Leads", re.Sheet)

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
}

func TestNewGoogleBackend_RequiresSpreadsheetID(t *testing.T) {
	_, err := NewGoogleBackend(context.Background(), "", option.WithoutAuthentication())
	assert.Error(t, err)
}

func TestCredentialOptions(t *testing.T) {
	_, err := CredentialOptions("", "")
	assert.Error(t, err)

	opts, err := CredentialOptions("/etc/roas/sa.json", "")
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}
